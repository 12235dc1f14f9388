//go:build !wasip1

package pluginsdk

type detached struct{}

func defaultTransport() transport { return detached{} }

func (detached) call(string, []byte) ([]byte, error) { return nil, ErrNoHost }

func (detached) notify(string, []byte) error { return ErrNoHost }
