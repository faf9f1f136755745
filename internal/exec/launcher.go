package exec

//go:generate mockgen -source=launcher.go -destination=launcher_mock.go -package=exec

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
)

var (
	// ErrTargetNotFound is returned when the launch target does not exist.
	ErrTargetNotFound = errors.New("target not found")

	// ErrPermissionDenied is returned when the target cannot be accessed.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotLaunchable is returned when the target exists but no process could be started for it.
	ErrNotLaunchable = errors.New("target is not launchable")

	// ErrNoOpener is returned when no platform opener is available.
	ErrNoOpener = errors.New("no opener available")
)

const executableBits = 0o111

// Target describes what to launch.
type Target struct {
	// Path is the resource to open. Relative paths resolve against the
	// current working directory.
	Path string

	// Args are passed after the path.
	Args []string

	// Dir is the working directory of the started process. Empty means the
	// directory containing Path.
	Dir string

	// Interpreter, when set, runs Path as its first argument. Only honored by
	// DirectLauncher.
	Interpreter []string
}

// Launcher starts a target and returns once the process is running. It never
// waits for the process to finish.
type Launcher interface {
	Launch(ctx context.Context, target Target) error
}

// ResolveTarget returns the absolute form of path after checking that it exists
// and is accessible.
func ResolveTarget(path string) (string, error) {
	if path == "" {
		return "", errors.Wrap(ErrTargetNotFound, "empty path")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", path)
	}

	if _, err := os.Stat(abs); err != nil {
		return "", classifyStatError(path, err)
	}

	return abs, nil
}

func classifyStatError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errors.Wrapf(ErrTargetNotFound, "%s", path)
	case errors.Is(err, fs.ErrPermission):
		return errors.Wrapf(ErrPermissionDenied, "%s", path)
	default:
		return errors.Wrapf(err, "accessing %s", path)
	}
}

func workingDir(target Target, abs string) string {
	if target.Dir != "" {
		return target.Dir
	}

	return filepath.Dir(abs)
}

// start runs argv in dir without waiting for it. The process is reaped in
// the background so it does not linger as a zombie.
func start(ctx context.Context, argv []string, dir string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "launch cancelled")
	}

	//nolint:gosec // G204: launching user-selected targets is the purpose
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir

	if err := cmd.Start(); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return errors.Wrapf(ErrPermissionDenied, "starting %s: %v", argv[0], err)
		}

		return errors.Wrapf(ErrNotLaunchable, "starting %s: %v", argv[0], err)
	}

	go func() {
		_ = cmd.Wait()
	}()

	return nil
}

// LauncherOption configures an OpenerLauncher.
type LauncherOption func(*OpenerLauncher)

// WithOpener replaces the platform opener with a fixed command. The target
// path is appended to it.
func WithOpener(command ...string) LauncherOption {
	return func(l *OpenerLauncher) {
		if len(command) > 0 {
			l.opener = command
		}
	}
}

// WithToolChecker sets the checker used to find xdg-open or gio.
func WithToolChecker(checker ToolChecker) LauncherOption {
	return func(l *OpenerLauncher) {
		if checker != nil {
			l.tools = checker
		}
	}
}

// WithGOOS overrides the operating system used to pick the opener.
func WithGOOS(goos string) LauncherOption {
	return func(l *OpenerLauncher) {
		l.goos = goos
	}
}

// OpenerLauncher hands targets to the desktop's default handler: xdg-open or
// gio on Linux and BSDs, open on macOS, the URL protocol handler on Windows.
type OpenerLauncher struct {
	opener []string
	tools  ToolChecker
	goos   string
}

// NewOpenerLauncher creates an OpenerLauncher for the running platform.
func NewOpenerLauncher(opts ...LauncherOption) *OpenerLauncher {
	l := &OpenerLauncher{
		tools: NewToolChecker(),
		goos:  runtime.GOOS,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Opener returns the command used to open targets.
func (l *OpenerLauncher) Opener() ([]string, error) {
	if len(l.opener) > 0 {
		return l.opener, nil
	}

	switch l.goos {
	case "darwin":
		return []string{"open"}, nil
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler"}, nil
	}

	switch l.tools.FindTool("xdg-open", "gio") {
	case "xdg-open":
		return []string{"xdg-open"}, nil
	case "gio":
		return []string{"gio", "open"}, nil
	default:
		return nil, errors.Wrap(ErrNoOpener, "neither xdg-open nor gio found in PATH")
	}
}

// Launch implements Launcher.
func (l *OpenerLauncher) Launch(ctx context.Context, target Target) error {
	abs, err := ResolveTarget(target.Path)
	if err != nil {
		return err
	}

	opener, err := l.Opener()
	if err != nil {
		return err
	}

	argv := make([]string, 0, len(opener)+1+len(target.Args))
	argv = append(argv, opener...)
	argv = append(argv, abs)
	argv = append(argv, target.Args...)

	return start(ctx, argv, workingDir(target, abs))
}

// DirectLauncher starts the target itself, or its interpreter when one is set.
type DirectLauncher struct{}

// NewDirectLauncher creates a DirectLauncher.
func NewDirectLauncher() *DirectLauncher {
	return &DirectLauncher{}
}

// Launch implements Launcher.
func (*DirectLauncher) Launch(ctx context.Context, target Target) error {
	abs, err := ResolveTarget(target.Path)
	if err != nil {
		return err
	}

	var argv []string

	if len(target.Interpreter) > 0 {
		argv = append(argv, target.Interpreter...)
	} else if err := checkExecutable(abs); err != nil {
		return err
	}

	argv = append(argv, abs)
	argv = append(argv, target.Args...)

	return start(ctx, argv, workingDir(target, abs))
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return classifyStatError(path, err)
	}

	if info.IsDir() {
		return errors.Wrapf(ErrNotLaunchable, "%s is a directory", path)
	}

	if runtime.GOOS != "windows" && info.Mode().Perm()&executableBits == 0 {
		return errors.Wrapf(ErrNotLaunchable, "%s is not executable", path)
	}

	return nil
}
