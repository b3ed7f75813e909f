package core

// Hub is what transports feed. Implemented by the reactor.
type Hub interface {
	// Open registers a freshly accepted transport and returns its handle.
	Open(t Transport) (SessionID, error)
	// Feed hands over bytes read from the socket. The hub owns chunk afterwards.
	Feed(sid SessionID, chunk []byte)
	Disconnect(sid SessionID)
}
