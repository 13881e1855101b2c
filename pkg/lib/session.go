package lib

import (
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/moby/sys/user"
)

// Session is the identity and environment of the invoking user, captured
// once at process start. It is never mutated afterwards; privilege changes
// happen only inside a privilege guard scope.
type Session struct {
	ID       string
	RealUID  int
	RealGID  int
	UserName string
	Cwd      string
	Environ  []string
	Verbose  bool
}

// NewSession captures the current process's identity.
func NewSession(verbose bool) (*Session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:      NewID(),
		RealUID: os.Getuid(),
		RealGID: os.Getgid(),
		Cwd:     cwd,
		Environ: os.Environ(),
		Verbose: verbose,
	}
	// the environment belongs to the caller; only the real uid is trusted
	u, err := user.LookupUid(s.RealUID)
	if err != nil {
		return nil, err
	}
	s.UserName = u.Name
	return s, nil
}

// Getenv looks a variable up in the captured environment.
func (s *Session) Getenv(key string) string {
	v, _ := s.LookupEnv(key)
	return v
}

func (s *Session) LookupEnv(key string) (string, bool) {
	prefix := key + "="
	for _, kv := range s.Environ {
		if strings.HasPrefix(kv, prefix) {
			return kv[len(prefix):], true
		}
	}
	return "", false
}

// NewID generates a UUID version 4 string (RFC 4122) identifying one
// invocation in the logs.
func NewID() string {
	return uuid.NewString()
}
