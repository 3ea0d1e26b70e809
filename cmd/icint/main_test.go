package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	hiProgram      = "G1L1 1 LL2 SP4 L60 K2 L0 SP4 L30 K2 2 C2 C72 C73\n"
	unknownProgram = "G1L1 1 L99 K2\n"
	stopProgram    = "G1L1 1 L3 SP4 L30 K2\n"
	echoProgram    = "G1L1 1 L13 K2 SP4 L14 K2 L0 SP4 L30 K2\n"
)

// testDir returns a directory with an empty manifest, so that the command
// never picks up a manifest from the surrounding tree.
func testDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "icint.toml"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCmd(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestUsage(t *testing.T) {
	code, out, _ := runCmd(t, "")
	if code != 0 || !strings.HasPrefix(out, "USAGE:") {
		t.Errorf("no arguments: code %d, output %q", code, out)
	}
}

func TestRunProgram(t *testing.T) {
	dir := testDir(t)
	prog := writeFile(t, dir, "hi.ic", hiProgram)
	code, out, errOut := runCmd(t, "", "-config", dir, prog)
	if code != 0 {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	if out != "HI" {
		t.Errorf("output = %q, want %q", out, "HI")
	}
}

func TestUnknownCall(t *testing.T) {
	dir := testDir(t)
	prog := writeFile(t, dir, "bad.ic", unknownProgram)
	code, out, _ := runCmd(t, "", "-config", dir, prog)
	if code != exitFatal {
		t.Errorf("exit = %d, want %d", code, exitFatal)
	}
	if out != "UNKNOWN CALL #99\n" {
		t.Errorf("output = %q", out)
	}
}

func TestInvalidOption(t *testing.T) {
	dir := testDir(t)
	prog := writeFile(t, dir, "hi.ic", hiProgram)
	in := writeFile(t, dir, "in.txt", "")
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"-zz", prog}, "INVALID OPTION\n"},
		{[]string{prog, "-zz"}, "INVALID OPTION #1\n"},
		{[]string{"-i" + in, prog, "-zz"}, "INVALID OPTION #2\n"},
		{[]string{"-i", in, prog, "-zz"}, "INVALID OPTION #3\n"},
		{[]string{"-i" + in, "-trace", "-v=2", "-zz"}, "INVALID OPTION #3\n"},
	}
	for _, tc := range tests {
		code, out, _ := runCmd(t, "", tc.args...)
		if code != exitFatal || out != tc.want {
			t.Errorf("%v: exit %d, output %q, want %q", tc.args, code, out, tc.want)
		}
	}
}

func TestInvalidOptionAfterRedirect(t *testing.T) {
	dir := testDir(t)
	outFile := filepath.Join(dir, "out.txt")

	code, out, _ := runCmd(t, "", "-o"+outFile, "-zz")
	if code != exitFatal {
		t.Errorf("exit = %d, want %d", code, exitFatal)
	}
	if out != "" {
		t.Errorf("stdout = %q, want nothing", out)
	}
	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "INVALID OPTION #1\n" {
		t.Errorf("out.txt = %q", data)
	}

	// a redirect after the bad option is never reached
	later := filepath.Join(dir, "later.txt")
	_, out, _ = runCmd(t, "", "-zz", "-o", later)
	if out != "INVALID OPTION\n" {
		t.Errorf("stdout = %q", out)
	}
	if _, err := os.Stat(later); err == nil {
		t.Error("later.txt was created")
	}
}

func TestCodeFromSysin(t *testing.T) {
	dir := testDir(t)
	code, out, errOut := runCmd(t, hiProgram, "-config", dir, "SYSIN")
	if code != 0 {
		t.Fatalf("exit %d, stdout %q, stderr %q", code, out, errOut)
	}
	if out != "HI" {
		t.Errorf("output = %q, want %q", out, "HI")
	}
}

func TestMissingCodeFile(t *testing.T) {
	dir := testDir(t)
	code, out, _ := runCmd(t, "", "-config", dir, filepath.Join(dir, "nope.ic"))
	if code != exitFatal || out != "NO ICFILE\n" {
		t.Errorf("exit %d, output %q", code, out)
	}
}

func TestAssemblyErrorIsFatal(t *testing.T) {
	dir := testDir(t)
	prog := writeFile(t, dir, "dup.ic", "1 X22 1\n")
	code, out, _ := runCmd(t, "", "-config", dir, prog)
	if code != exitFatal || out != "DUPLICATE LABEL #1\n" {
		t.Errorf("exit %d, output %q", code, out)
	}
}

func TestRedirects(t *testing.T) {
	dir := testDir(t)
	prog := writeFile(t, dir, "echo.ic", echoProgram)
	in := writeFile(t, dir, "in.txt", "Q")
	outFile := filepath.Join(dir, "out.txt")

	// attached and separate forms
	code, out, errOut := runCmd(t, "", "-config", dir, "-i"+in, "-o", outFile, prog)
	if code != 0 {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	if out != "" {
		t.Errorf("stdout = %q, want nothing", out)
	}
	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Q" {
		t.Errorf("out.txt = %q, want %q", data, "Q")
	}

	code, out, _ = runCmd(t, "", "-config", dir, "-i", filepath.Join(dir, "missing"), prog)
	if code != exitFatal || out != "NO INPUT\n" {
		t.Errorf("missing input: exit %d, output %q", code, out)
	}
}

func TestExitStatus(t *testing.T) {
	dir := testDir(t)
	prog := writeFile(t, dir, "stop.ic", stopProgram)
	if code, _, _ := runCmd(t, "", "-config", dir, prog); code != 0 {
		t.Errorf("exit = %d without -exit-status, want 0", code)
	}
	if code, _, _ := runCmd(t, "", "-config", dir, "-exit-status", prog); code != 3 {
		t.Errorf("exit = %d with -exit-status, want 3", code)
	}
}

func TestDump(t *testing.T) {
	dir := testDir(t)
	prog := writeFile(t, dir, "hi.ic", hiProgram)
	code, out, _ := runCmd(t, "", "-config", dir, "-dump", prog)
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(out, "LI 1") || !strings.Contains(out, "K 2") {
		t.Errorf("listing = %q", out)
	}
	if strings.Contains(out, "HI") {
		t.Error("-dump ran the program")
	}
}

func TestImageFile(t *testing.T) {
	dir := testDir(t)
	prog := writeFile(t, dir, "hi.ic", hiProgram)
	img := filepath.Join(dir, "hi.icimg")

	code, out, errOut := runCmd(t, "", "-config", dir, "-save-image", img, prog)
	if code != 0 || out != "HI" {
		t.Fatalf("save: exit %d, output %q, stderr %q", code, out, errOut)
	}
	code, out, errOut = runCmd(t, "", "-config", dir, "-image", img)
	if code != 0 || out != "HI" {
		t.Errorf("restore: exit %d, output %q, stderr %q", code, out, errOut)
	}
}

func TestImageStore(t *testing.T) {
	dir := testDir(t)
	prog := writeFile(t, dir, "hi.ic", hiProgram)
	db := filepath.Join(dir, "images.db")

	code, _, errOut := runCmd(t, "", "-config", dir, "-store", db, "-name", "hi", prog)
	if code != 0 {
		t.Fatalf("save: exit %d, stderr %q", code, errOut)
	}
	code, out, errOut := runCmd(t, "", "-config", dir, "-store", db, "-load", "hi")
	if code != 0 || out != "HI" {
		t.Errorf("load: exit %d, output %q, stderr %q", code, out, errOut)
	}

	code, _, errOut = runCmd(t, "", "-config", dir, "-store", db, "-load", "nope")
	if code != 1 || !strings.Contains(errOut, "not found") {
		t.Errorf("missing image: exit %d, stderr %q", code, errOut)
	}
}

func TestManifestUnits(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hi.ic", hiProgram)
	writeFile(t, dir, "icint.toml", "[program]\nunits = [\"hi.ic\"]\n")
	code, out, errOut := runCmd(t, "", "-config", dir, "-trace")
	if code != 0 || out != "HI" {
		t.Errorf("exit %d, output %q, stderr %q", code, out, errOut)
	}
}
