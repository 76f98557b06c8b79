package command

import "context"

// sudoRunner runs every command as another account.
type sudoRunner struct {
	runner Runner
	user   string
}

// AsUser returns a Runner that runs commands through "sudo -u user -H".
// An empty user returns r unchanged.
func AsUser(r Runner, user string) Runner {
	if user == "" {
		return r
	}
	return &sudoRunner{runner: r, user: user}
}

func (s *sudoRunner) argv(name string, args []string) []string {
	return append([]string{"-u", s.user, "-H", name}, args...)
}

func (s *sudoRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	return s.runner.Run(ctx, "sudo", s.argv(name, args)...)
}

func (s *sudoRunner) Check(ctx context.Context, name string, args ...string) bool {
	return s.runner.Check(ctx, "sudo", s.argv(name, args)...)
}
