// icint CLI - assembles INTCODE units and runs them
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/icint/assembler"
	"github.com/chazu/icint/imagestore"
	"github.com/chazu/icint/manifest"
	"github.com/chazu/icint/vm"
)

const usage = "USAGE: icint ICFILE [...] [-iINPUT] [-oOUTPUT]"

// exit status for fatal machine errors
const exitFatal = 255

var log = commonlog.GetLogger("icint")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	input, output string
	trace         bool
	verbosity     int
	logFile       string
	config        string
	dump          bool
	saveImage     string
	image         string
	store         string
	name          string
	load          string
	exitStatus    bool
	seed          uint64

	units []string
}

func newFlagSet(o *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("icint", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.input, "i", "", "Read SYSIN from `file`")
	fs.StringVar(&o.output, "o", "", "Write SYSPRINT to `file`")
	fs.BoolVar(&o.trace, "trace", false, "Log every instruction (implies -v 4)")
	fs.IntVar(&o.verbosity, "v", 0, "Log verbosity")
	fs.StringVar(&o.logFile, "log", "", "Write the log to `file` instead of stderr")
	fs.StringVar(&o.config, "config", "", "Directory holding icint.toml (default: search upward from the working directory)")
	fs.BoolVar(&o.dump, "dump", false, "Print a listing of the loaded code instead of running it")
	fs.StringVar(&o.saveImage, "save-image", "", "Write a snapshot of the loaded machine to `file`")
	fs.StringVar(&o.image, "image", "", "Start from the snapshot in `file` instead of an empty machine")
	fs.StringVar(&o.store, "store", "", "Image store `database`")
	fs.StringVar(&o.name, "name", "", "Save the loaded machine in the image store under `name`")
	fs.StringVar(&o.load, "load", "", "Start from the image stored under `name`")
	fs.BoolVar(&o.exitStatus, "exit-status", false, "Use the stop value as the process exit status")
	fs.Uint64Var(&o.seed, "seed", 0, "Seed for the random syscall")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "%s\n\nOptions:\n", usage)
		fs.SetOutput(stderr)
		fs.PrintDefaults()
		fs.SetOutput(io.Discard)
	}
	return fs
}

// parseArgs parses flags and code files in any order. The classic attached
// forms -iFILE and -oFILE are accepted alongside -i FILE. On an unknown
// flag it returns the index of the offending argument in args, along with
// the options parsed before it.
func parseArgs(args []string, stderr io.Writer) (*options, int, error) {
	o := &options{}
	fs := newFlagSet(o, stderr)

	rest := splitAttached(fs, args)
	for {
		if err := fs.Parse(rest); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, 0, err
			}
			return o, badOption(fs, args), err
		}
		rest = fs.Args()
		if len(rest) == 0 {
			break
		}
		o.units = append(o.units, rest[0])
		rest = rest[1:]
	}
	return o, 0, nil
}

func flagName(arg string) string {
	name := strings.TrimLeft(arg, "-")
	if i := strings.IndexByte(name, '='); i >= 0 {
		name = name[:i]
	}
	return name
}

func attached(fs *flag.FlagSet, a string) bool {
	return len(a) > 2 && (strings.HasPrefix(a, "-i") || strings.HasPrefix(a, "-o")) &&
		fs.Lookup(flagName(a)) == nil
}

func splitAttached(fs *flag.FlagSet, args []string) []string {
	var out []string
	for _, a := range args {
		if attached(fs, a) {
			out = append(out, a[:2], a[2:])
			continue
		}
		out = append(out, a)
	}
	return out
}

type boolFlag interface {
	IsBoolFlag() bool
}

// badOption returns the index in the unsplit args of the first flag the set
// does not define. Values of separate-form flags are skipped.
func badOption(fs *flag.FlagSet, args []string) int {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if len(a) < 2 || a[0] != '-' || a == "--" || attached(fs, a) {
			continue
		}
		f := fs.Lookup(flagName(a))
		if f == nil {
			return i
		}
		if b, ok := f.Value.(boolFlag); ok && b.IsBoolFlag() {
			continue
		}
		if !strings.Contains(a, "=") {
			i++
		}
	}
	return 0
}

// reportOption writes the INVALID OPTION message to the output named by an
// earlier -o, or to stdout when there is none or it cannot be created.
func reportOption(output string, bad int, stdout io.Writer) {
	w := stdout
	if output != "" {
		f, err := os.Create(output)
		if err == nil {
			defer f.Close()
			w = f
		} else {
			log.Debugf("findoutput %q: %s", output, err)
		}
	}
	fmt.Fprintln(w, vm.NewError(vm.InvalidOption, bad))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stdout, usage)
		return 0
	}

	o, bad, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		reportOption(o.output, bad, stdout)
		return exitFatal
	}

	m, err := loadManifest(o.config)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	o.merge(m)

	verbosity := o.verbosity
	if o.trace && verbosity < 4 {
		verbosity = 4
	}
	if o.logFile != "" {
		commonlog.Configure(verbosity, &o.logFile)
	} else {
		commonlog.Configure(verbosity, nil)
	}

	cfg := m.MachineConfig()
	cfg.Stdin = stdin
	cfg.Stdout = stdout
	cfg.Trace = o.trace
	if o.seed != 0 {
		cfg.Seed = o.seed
	}

	v, err := o.newMachine(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer v.Close()
	v.UseAssembler(assembler.Assemble)

	if o.input != "" {
		if err := v.RedirectInput(o.input); err != nil {
			return fatal(v, err, stderr)
		}
	}
	if o.output != "" {
		if err := v.RedirectOutput(o.output); err != nil {
			return fatal(v, err, stderr)
		}
	}
	for _, unit := range o.units {
		if err := v.LoadFile(unit); err != nil {
			return fatal(v, err, stderr)
		}
	}

	if err := o.saveMachine(v); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if o.dump {
		fmt.Fprint(stdout, v.Listing())
		return 0
	}

	status, err := v.Run()
	if err != nil {
		return fatal(v, err, stderr)
	}
	if o.exitStatus {
		return int(status) & 0xff
	}
	return 0
}

func loadManifest(dir string) (*manifest.Manifest, error) {
	if dir != "" {
		return manifest.Load(dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return manifest.FindAndLoad(wd)
}

// merge fills options the command line left unset from the manifest.
// Manifest code units are loaded before those named on the command line.
func (o *options) merge(m *manifest.Manifest) {
	if m == nil {
		return
	}
	log.Debugf("using manifest in %s", m.Dir)
	pick := func(flagVal, manifestVal string) string {
		if flagVal != "" {
			return flagVal
		}
		return m.Path(manifestVal)
	}
	o.input = pick(o.input, m.Program.Input)
	o.output = pick(o.output, m.Program.Output)
	o.logFile = pick(o.logFile, m.Log.File)
	o.saveImage = pick(o.saveImage, m.Image.Output)
	o.store = pick(o.store, m.Image.Store)
	if o.name == "" {
		o.name = m.Image.Name
	}
	if o.verbosity == 0 {
		o.verbosity = m.Log.Verbosity
	}
	o.trace = o.trace || m.Log.Trace
	o.exitStatus = o.exitStatus || m.Program.ExitStatus
	o.units = append(m.UnitPaths(), o.units...)
}

func (o *options) newMachine(cfg vm.Config) (*vm.VM, error) {
	switch {
	case o.image != "":
		data, err := os.ReadFile(o.image)
		if err != nil {
			return nil, fmt.Errorf("cannot read image: %w", err)
		}
		img, err := vm.UnmarshalImage(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.image, err)
		}
		return vm.NewFromImage(img, cfg)
	case o.load != "":
		if o.store == "" {
			return nil, errors.New("-load needs an image store (-store)")
		}
		s, err := imagestore.Open(o.store)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		img, err := s.Load(o.load)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.load, err)
		}
		return vm.NewFromImage(img, cfg)
	}
	return vm.New(cfg)
}

// saveMachine writes the loaded machine to the image file and the image
// store when either is configured.
func (o *options) saveMachine(v *vm.VM) error {
	if o.saveImage == "" && o.name == "" {
		return nil
	}
	img := v.Snapshot()
	if o.saveImage != "" {
		data, err := vm.MarshalImage(img)
		if err != nil {
			return err
		}
		if err := os.WriteFile(o.saveImage, data, 0644); err != nil {
			return fmt.Errorf("cannot write image: %w", err)
		}
		log.Infof("wrote image %s to %s", img.ID, o.saveImage)
	}
	if o.name != "" {
		if o.store == "" {
			return errors.New("-name needs an image store (-store)")
		}
		s, err := imagestore.Open(o.store)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Save(o.name, img); err != nil {
			return err
		}
	}
	return nil
}

// fatal reports a machine error on SYSPRINT. Other errors come from the
// host and go to stderr.
func fatal(v *vm.VM, err error, stderr io.Writer) int {
	var e *vm.Error
	if errors.As(err, &e) {
		v.Report(e)
		return exitFatal
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
