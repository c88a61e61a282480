package flags

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/faceplate-kleo/glitchsort/lib/keyframe"
)

func TestDefault(t *testing.T) {
	f := Default()
	if f.Segmentation != "edge" || f.Key != "lightness" || f.LogLevel != "INFO" || f.Ext != "same" {
		t.Errorf("unexpected defaults %+v", f)
	}
	if f.Threshold != "0.1" || f.SAngle != "90" || f.Size != "0.05" || f.Length != "10" || f.Scale != "1" {
		t.Errorf("unexpected variable defaults %+v", f)
	}
}

func TestLoadMissingFile(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if *f != *Default() {
		t.Errorf("missing preset should give defaults, got %+v", f)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets", "melt.yaml")
	f := Default()
	f.Segmentation = "melting"
	f.Size = "0.1,0.3"
	f.Amount = 4
	f.Reverse = true
	f.Input = "ignored.png"
	if err := Save(f, path); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	f.Input = ""
	if *got != *f {
		t.Errorf("Load() = %+v, want %+v", got, f)
	}
}

func TestLoadPartialPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	data := "segmentation: chunky\nlength: \"4,20\"\nworkers: 3\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Segmentation != "chunky" || f.Length != "4,20" || f.Workers != 3 {
		t.Errorf("preset not applied: %+v", f)
	}
	if f.Key != "lightness" || f.Threshold != "0.1" {
		t.Errorf("unset options should keep defaults: %+v", f)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("amount: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Flags)
		wantErr bool
	}{
		{"defaults", func(f *Flags) {}, false},
		{"row alias", func(f *Flags) { f.Segmentation = "row" }, false},
		{"lowercase level", func(f *Flags) { f.LogLevel = "debug" }, false},
		{"no input", func(f *Flags) { f.Input = "" }, true},
		{"bad segmentation", func(f *Flags) { f.Segmentation = "diagonal" }, true},
		{"bad key", func(f *Flags) { f.Key = "luma" }, true},
		{"bad level", func(f *Flags) { f.LogLevel = "TRACE" }, true},
		{"bad ext", func(f *Flags) { f.Ext = ".psd" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Default()
			f.Input = "in.png"
			tt.mutate(f)
			if err := f.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	f := Default()
	f.Segmentation = "chunky"
	f.Threshold = "0.9"
	f.Size = "0.5"
	f.Randomness = "0.3"
	f.Length = "4"
	f.SAngle = "45"
	f.Scale = "2"
	f.Width = "640"
	f.Normalize()

	if f.Threshold != "0.1" || f.Size != "0.05" || f.SAngle != "90" || f.Scale != "1" {
		t.Errorf("irrelevant options not reset: %+v", f)
	}
	if f.Randomness != "0.3" || f.Length != "4" || f.Width != "640" {
		t.Errorf("relevant options changed: %+v", f)
	}

	g := Default()
	g.Segmentation = "blocky"
	g.SecondPass = true
	g.Size = "0.2"
	g.Randomness = "0.1"
	g.SAngle = "45"
	g.Scale = "0.5"
	g.Normalize()
	if g.Size != "0.2" || g.Randomness != "0.1" || g.SAngle != "45" || g.Scale != "0.5" {
		t.Errorf("blocky options reset: %+v", g)
	}
}

func TestResolve(t *testing.T) {
	f := Default()
	f.Threshold = "0.2,2"
	f.Angle = "15,30"
	f.Length = "1"
	f.Amount = 0
	f.Workers = -2

	var warned []string
	r := f.Resolve(func(name string) { warned = append(warned, name) })

	want := []string{"threshold", "length", "amount", "workers"}
	if len(warned) != len(want) {
		t.Fatalf("warned %v, want %v", warned, want)
	}
	for i := range want {
		if warned[i] != want[i] {
			t.Fatalf("warned %v, want %v", warned, want)
		}
	}
	if r.Threshold != (keyframe.Range{Start: 0.2, End: 0.1}) {
		t.Errorf("threshold = %+v", r.Threshold)
	}
	if r.Angle != (keyframe.Range{Start: 15, End: 30, Int: true}) {
		t.Errorf("angle = %+v", r.Angle)
	}
	if r.Length != keyframe.Constant(10, true) {
		t.Errorf("length = %+v", r.Length)
	}
	if f.Amount != 1 || f.Workers != 1 {
		t.Errorf("amount %d workers %d", f.Amount, f.Workers)
	}
}
