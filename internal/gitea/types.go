package gitea

// CommitDiff is one commit of a pull request together with its full
// diff text and the files it touched.
type CommitDiff struct {
	CommitID      string
	CommitMessage string
	Files         []ChangedFile
	DiffContent   string
}

// ChangedFile describes one file touched by a commit. Entries come from
// the forge and may be incomplete; consumers must treat an empty
// Filename as malformed.
type ChangedFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// ReviewComment is one comment to attach to a pull request review.
type ReviewComment struct {
	Path     string
	Line     int
	Body     string
	CommitID string
}
