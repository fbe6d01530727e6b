package serving

import "net"

// allocatePort asks the kernel for a free TCP port by binding 127.0.0.1:0
// and reading back the assignment. The probe socket is released before the
// worker binds the port, so another process could grab it in between; the
// window is accepted as a rare flakiness source rather than eliminated,
// because handing a bound listener across a process boundary would force
// different semantics on the two worker modes.
func allocatePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
