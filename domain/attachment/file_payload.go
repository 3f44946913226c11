package attachment

// FilePayload is a freshly chosen file riding in a form value set before it
// has been written to the blob store.
type FilePayload struct {
	FileName string
	Content  []byte
}
