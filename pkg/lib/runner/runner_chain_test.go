package runner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/arkane-systems/genie/pkg/lib"
	"github.com/arkane-systems/genie/pkg/lib/privilege"
)

type fakeExecutor struct {
	codes map[string]int
	err   error
	ran   []string

	// elevated records whether guard was held for each command
	guard    *privilege.Guard
	elevated []bool
}

func (f *fakeExecutor) RunAndWait(_ context.Context, cmd lib.Command) (int, error) {
	line := CommandLine(cmd)
	f.ran = append(f.ran, line)
	if f.guard != nil {
		f.elevated = append(f.elevated, f.guard.Held())
	}
	if f.err != nil {
		return lib.CodeSpawnFailed, f.err
	}
	return f.codes[cmd.Command], nil
}

func (f *fakeExecutor) RunAndWaitForOutput(ctx context.Context, cmd lib.Command) (string, error) {
	_, err := f.RunAndWait(ctx, cmd)
	return "", err
}

// rootCredentials accepts every change, as for a process with euid 0.
type rootCredentials struct {
	uid, gid [3]int
}

func (c *rootCredentials) Getresuid() (int, int, int) { return c.uid[0], c.uid[1], c.uid[2] }
func (c *rootCredentials) Getresgid() (int, int, int) { return c.gid[0], c.gid[1], c.gid[2] }
func (c *rootCredentials) Setresuid(r, e, s int) error {
	c.uid = [3]int{r, e, s}
	return nil
}
func (c *rootCredentials) Setresgid(r, e, s int) error {
	c.gid = [3]int{r, e, s}
	return nil
}

func TestChainSuccess(t *testing.T) {
	e := &fakeExecutor{}

	if err := Chain(context.Background(), e, lib.Command{Command: "true"}, "should not appear"); err != nil {
		t.Fatalf("Chain failed: %v", err)
	}
	if len(e.ran) != 1 {
		t.Fatalf("expected one command, got %v", e.ran)
	}
}

func TestChainNonzeroIsFatal(t *testing.T) {
	e := &fakeExecutor{codes: map[string]int{"mount": 32}}

	err := Chain(context.Background(), e, lib.Command{Command: "mount", Args: []string{"--bind", "a", "b"}}, "initializing bind mount")
	if err == nil {
		t.Fatalf("expected error")
	}
	if lib.ExitCode(err) != 32 {
		t.Fatalf("expected exit code 32, got %d", lib.ExitCode(err))
	}
	if !strings.Contains(err.Error(), "initializing bind mount") || !strings.Contains(err.Error(), "32") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestChainMessageNamesCommand(t *testing.T) {
	e := &fakeExecutor{codes: map[string]int{"umount": 32}}

	err := Chain(context.Background(), e, lib.Command{Command: "umount", Args: []string{"/etc/hostname"}}, "shutdown failed; unmounting hostname")
	if err == nil {
		t.Fatalf("expected error")
	}
	if err.Error() != "shutdown failed; unmounting hostname (umount) returned 32" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestChainInsideMessageNamesInnerCommand(t *testing.T) {
	creds := &rootCredentials{uid: [3]int{1000, 0, 0}, gid: [3]int{1000, 1000, 1000}}
	g := privilege.NewGuard(creds)
	e := &fakeExecutor{codes: map[string]int{"systemctl": 1}}

	err := ChainInside(context.Background(), e, g, 55, []string{"systemctl", "poweroff"}, "shutting down bottle failed")
	if err == nil || !strings.Contains(err.Error(), "(systemctl)") {
		t.Fatalf("expected message naming systemctl, got %v", err)
	}
}

func TestChainDefaultMessageNamesCommand(t *testing.T) {
	e := &fakeExecutor{codes: map[string]int{"umount": 1}}

	err := Chain(context.Background(), e, lib.Command{Command: "umount"}, "")
	if err == nil || !strings.Contains(err.Error(), "umount") {
		t.Fatalf("expected message naming umount, got %v", err)
	}
}

func TestChainSpawnErrorPassesThrough(t *testing.T) {
	spawn := &lib.ExitError{Code: lib.CodeSpawnFailed, Msg: "error executing command 'x'"}
	e := &fakeExecutor{err: spawn}

	err := Chain(context.Background(), e, lib.Command{Command: "x"}, "")
	if !errors.Is(err, spawn) {
		t.Fatalf("expected spawn error, got %v", err)
	}
}

func TestChainInsideElevates(t *testing.T) {
	creds := &rootCredentials{uid: [3]int{1000, 0, 0}, gid: [3]int{1000, 1000, 1000}}
	g := privilege.NewGuard(creds)
	e := &fakeExecutor{guard: g}

	err := ChainInside(context.Background(), e, g, 55, []string{"systemctl", "poweroff"}, "")
	if err != nil {
		t.Fatalf("ChainInside failed: %v", err)
	}
	if e.ran[0] != "nsenter -t 55 -m -p systemctl poweroff" {
		t.Fatalf("unexpected command %q", e.ran[0])
	}
	if !e.elevated[0] {
		t.Fatalf("command did not run elevated")
	}
	if g.Held() || creds.uid != [3]int{1000, 0, 0} {
		t.Fatalf("credentials not restored: %v", creds.uid)
	}
}

func TestChainInsideReusesHeldGuard(t *testing.T) {
	creds := &rootCredentials{uid: [3]int{1000, 0, 0}, gid: [3]int{1000, 1000, 1000}}
	g := privilege.NewGuard(creds)
	e := &fakeExecutor{guard: g}

	err := g.Do(func() error {
		return ChainInside(context.Background(), e, g, 55, []string{"mount", "-a"}, "")
	})
	if err != nil {
		t.Fatalf("ChainInside within held guard failed: %v", err)
	}
	if !e.elevated[0] {
		t.Fatalf("command did not run elevated")
	}
	if creds.uid != [3]int{1000, 0, 0} {
		t.Fatalf("credentials not restored: %v", creds.uid)
	}
}
