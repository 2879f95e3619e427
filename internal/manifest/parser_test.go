package manifest

import (
	"testing"

	"github.com/NFrozeCLAWDBOT/bastion/internal/graph"
)

func findDep(deps []Dependency, name string) (Dependency, bool) {
	for _, d := range deps {
		if d.Name == name {
			return d, true
		}
	}
	return Dependency{}, false
}

func TestParseNPM(t *testing.T) {
	manifest := `{
		"dependencies": {"left-pad": "^1.3.0", "react": "~17.0.2"},
		"devDependencies": {"jest": ">=29.0.0", "react": "17.0.2"}
	}`
	deps := Parse(graph.NPM, manifest)
	if len(deps) != 3 {
		t.Fatalf("expected 3 deps, got %d: %+v", len(deps), deps)
	}
	if deps[0].Name != "left-pad" || deps[0].Version != "1.3.0" {
		t.Errorf("left-pad = %+v", deps[0])
	}
	// react appears in both blocks; devDependencies value should win,
	// but keep its position from the first (dependencies) occurrence.
	if deps[1].Name != "react" || deps[1].Version != "17.0.2" {
		t.Errorf("react = %+v", deps[1])
	}
	if deps[2].Name != "jest" {
		t.Errorf("jest should be last, got %+v", deps[2])
	}
}

func TestParseNPMInvalidJSON(t *testing.T) {
	if deps := Parse(graph.NPM, "{not json"); deps != nil {
		t.Errorf("expected nil for invalid JSON, got %+v", deps)
	}
}

func TestParsePyPI(t *testing.T) {
	manifest := "requests==2.0.0\n# a comment\n-r other.txt\n\nnumpy>=1.2,<2.0\nDjango_Rest_Framework\n"
	deps := Parse(graph.PyPI, manifest)
	want := map[string]string{
		"requests":                "2.0.0",
		"numpy":                   "1.2",
		"django-rest-framework": "",
	}
	if len(deps) != len(want) {
		t.Fatalf("expected %d deps, got %d: %+v", len(want), len(deps), deps)
	}
	for _, d := range deps {
		if v, ok := want[d.Name]; !ok || v != d.Version {
			t.Errorf("unexpected dep %+v", d)
		}
	}
}

func TestParseGoRequireBlock(t *testing.T) {
	manifest := "module example.com/thing\n\ngo 1.21\n\nrequire (\n\tgithub.com/foo/bar v1.2.3\n\tgithub.com/baz/qux v0.0.1 // indirect\n)\n\nrequire github.com/solo/pkg v2.0.0\n"
	deps := Parse(graph.Go, manifest)
	if len(deps) != 3 {
		t.Fatalf("expected 3 deps, got %d: %+v", len(deps), deps)
	}
	if d, ok := findDep(deps, "github.com/foo/bar"); !ok || d.Version != "1.2.3" {
		t.Errorf("foo/bar = %+v ok=%v", d, ok)
	}
	if d, ok := findDep(deps, "github.com/solo/pkg"); !ok || d.Version != "2.0.0" {
		t.Errorf("solo/pkg = %+v ok=%v", d, ok)
	}
}

func TestParseMaven(t *testing.T) {
	manifest := `<project><dependencies>
		<dependency>
			<groupId>org.apache.logging.log4j</groupId>
			<artifactId>log4j-core</artifactId>
			<version>2.14.1</version>
		</dependency>
	</dependencies></project>`
	deps := Parse(graph.Maven, manifest)
	if len(deps) != 1 {
		t.Fatalf("expected 1 dep, got %d", len(deps))
	}
	if deps[0].Name != "org.apache.logging.log4j:log4j-core" || deps[0].Version != "2.14.1" {
		t.Errorf("got %+v", deps[0])
	}
}

func TestParseCargo(t *testing.T) {
	manifest := "[package]\nname = \"x\"\n\n[dependencies]\nserde = \"1.0\"\ntokio = { version = \"1.28\", features = [\"full\"] }\n\n[dev-dependencies]\ncriterion = \"0.5\"\n"
	deps := Parse(graph.Cargo, manifest)
	if d, ok := findDep(deps, "serde"); !ok || d.Version != "1.0" {
		t.Errorf("serde = %+v ok=%v", d, ok)
	}
	if d, ok := findDep(deps, "tokio"); !ok || d.Version != "1.28" {
		t.Errorf("tokio = %+v ok=%v", d, ok)
	}
	if d, ok := findDep(deps, "criterion"); !ok || d.Version != "0.5" {
		t.Errorf("criterion = %+v ok=%v", d, ok)
	}
}
