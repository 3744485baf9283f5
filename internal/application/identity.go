package application

// Identity is the opaque, stable key of the signed-in user. It is passed
// explicitly into every synchronizer call; the zero value means no session.
type Identity string

func (i Identity) Missing() bool { return i == "" }

func (i Identity) String() string { return string(i) }
