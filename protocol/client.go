package protocol

// Hello is the optional greeting a viewer client sends after connecting.
type Hello struct {
	V    int    `json:"v"`              // version
	Name string `json:"name,omitempty"` // optional name
}
