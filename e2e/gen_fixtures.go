//go:build ignore

// gen_fixtures creates small test inputs for the E2E smoke test.
// Usage: go run gen_fixtures.go <output_dir>
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AnyUserName/jpeg2png/internal/fixture"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen_fixtures <output_dir>")
		os.Exit(1)
	}
	dir := os.Args[1]
	os.MkdirAll(filepath.Join(dir, "cards"), 0o755)

	// Banner (JPEG, 400x225)
	write(filepath.Join(dir, "banner.jpg"), fixture.GradientJPEG(400, 225))

	// Cards (JPEG, 200x150 each)
	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("card-%d.jpeg", i)
		write(filepath.Join(dir, "cards", name), fixture.JPEG(fixture.SolidWithBorder(200, 150, uint8(i*60))))
	}

	// Grayscale scan
	write(filepath.Join(dir, "scan.JPG"), fixture.JPEG(fixture.GrayRamp(120, 80)))

	// Negative cases: a PNG and a text file wearing .jpg extensions.
	write(filepath.Join(dir, "not-really.jpg"), fixture.PNG(fixture.Gradient(16, 16)))
	write(filepath.Join(dir, "notes.jpg"), fixture.Garbage())

	fmt.Fprintf(os.Stderr, "[jpeg2png] created 7 fixtures in %s\n", dir)
}

func write(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		panic(err)
	}
}
