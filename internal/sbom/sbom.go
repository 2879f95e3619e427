// Package sbom serialises an annotated dependency graph as a
// CycloneDX 1.5 document with embedded vulnerability (VEX) records.
package sbom

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/package-url/packageurl-go"
)

// SpecVersion is the CycloneDX schema version this emitter targets.
const SpecVersion = "1.5"

// ToolName/ToolVersion identify the analyser in metadata.tools.
const (
	ToolName    = "bastion"
	ToolVersion = "1.0.0"
)

// purlTypeByEcosystem maps an ecosystem identifier to its PURL type.
var purlTypeByEcosystem = map[string]string{
	"npm":   "npm",
	"pypi":  "pypi",
	"go":    "golang",
	"maven": "maven",
	"cargo": "cargo",
}

// NodeDTO is the subset of an annotated package node the SBOM emitter
// needs. It is independent from the internal graph representation so
// this package has no dependency on the orchestrator.
type NodeDTO struct {
	Name            string
	Version         string
	DependsOn       []string
	LicenceSPDX     string
	Vulnerabilities []VulnerabilityDTO
}

// VulnerabilityDTO is one vulnerability attached to a node, reduced to
// the fields the CycloneDX vulnerabilities array needs.
type VulnerabilityDTO struct {
	ID       string
	Summary  string
	Severity string
	CVSS     float64
	FixedIn  string
	CisaKev  bool
}

// Document mirrors the subset of the CycloneDX 1.5 schema this
// analyser populates.
type Document struct {
	BOMFormat    string          `json:"bomFormat"`
	SpecVersion  string          `json:"specVersion"`
	SerialNumber string          `json:"serialNumber"`
	Version      int             `json:"version"`
	Metadata     Metadata        `json:"metadata"`
	Components   []Component     `json:"components"`
	Dependencies []Dependency    `json:"dependencies"`
	Vulns        []Vulnerability `json:"vulnerabilities,omitempty"`
}

type Metadata struct {
	Timestamp string    `json:"timestamp"`
	Tools     Tools     `json:"tools"`
	Component Component `json:"component"`
}

type Tools struct {
	Components []ToolComponent `json:"components"`
}

type ToolComponent struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Component struct {
	Type     string     `json:"type"`
	Name     string     `json:"name"`
	Version  string     `json:"version"`
	PURL     string     `json:"purl,omitempty"`
	BOMRef   string     `json:"bom-ref"`
	Licenses []Licenses `json:"licenses,omitempty"`
}

type Licenses struct {
	License License `json:"license"`
}

type License struct {
	ID string `json:"id"`
}

type Dependency struct {
	Ref       string   `json:"ref"`
	DependsOn []string `json:"dependsOn,omitempty"`
}

type Vulnerability struct {
	ID             string    `json:"id"`
	Source         Source    `json:"source"`
	Ratings        []Rating  `json:"ratings,omitempty"`
	Description    string    `json:"description,omitempty"`
	Affects        []Affects `json:"affects"`
	Analysis       *Analysis `json:"analysis,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
}

type Source struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type Rating struct {
	Score    float64 `json:"score"`
	Severity string  `json:"severity,omitempty"`
	Method   string  `json:"method"`
}

type Affects struct {
	Ref      string            `json:"ref"`
	Versions []AffectedVersion `json:"versions,omitempty"`
}

type AffectedVersion struct {
	Version string `json:"version"`
}

type Analysis struct {
	State string `json:"state"`
}

// Emit builds a CycloneDX 1.5 document for nodes under the given
// ecosystem. root is a "name@version" string describing the analysed
// project itself.
func Emit(nodes []NodeDTO, ecosystem string, root string, timestamp string, newUUID func() string) Document {
	doc := Document{
		BOMFormat:    "CycloneDX",
		SpecVersion:  SpecVersion,
		SerialNumber: "urn:uuid:" + newUUID(),
		Version:      1,
		Metadata: Metadata{
			Timestamp: timestamp,
			Tools: Tools{Components: []ToolComponent{
				{Type: "application", Name: ToolName, Version: ToolVersion},
			}},
			Component: rootComponent(root),
		},
	}

	for _, n := range nodes {
		bomRef := n.Name + "@" + n.Version
		comp := Component{
			Type:    "library",
			Name:    n.Name,
			Version: n.Version,
			PURL:    buildPURL(ecosystem, n.Name, n.Version),
			BOMRef:  bomRef,
		}
		if n.LicenceSPDX != "" {
			comp.Licenses = []Licenses{{License: License{ID: n.LicenceSPDX}}}
		}
		doc.Components = append(doc.Components, comp)
		doc.Dependencies = append(doc.Dependencies, Dependency{Ref: bomRef, DependsOn: n.DependsOn})

		for _, v := range n.Vulnerabilities {
			doc.Vulns = append(doc.Vulns, buildVulnerability(bomRef, n.Version, v))
		}
	}

	return doc
}

func rootComponent(root string) Component {
	name, version := splitNameVersion(root)
	return Component{Type: "application", Name: name, Version: version, BOMRef: root}
}

func splitNameVersion(nameAtVersion string) (string, string) {
	idx := strings.LastIndex(nameAtVersion, "@")
	if idx <= 0 {
		return nameAtVersion, ""
	}
	return nameAtVersion[:idx], nameAtVersion[idx+1:]
}

func buildPURL(ecosystem, name, version string) string {
	if ecosystem == "maven" {
		parts := strings.SplitN(name, ":", 2)
		if len(parts) == 2 {
			p := packageurl.PackageURL{Type: "maven", Namespace: parts[0], Name: parts[1], Version: version}
			return p.String()
		}
	}
	purlType, ok := purlTypeByEcosystem[ecosystem]
	if !ok {
		purlType = ecosystem
	}
	p := packageurl.PackageURL{Type: purlType, Name: name, Version: version}
	return p.String()
}

func buildVulnerability(ref, version string, v VulnerabilityDTO) Vulnerability {
	vuln := Vulnerability{
		ID:          v.ID,
		Source:      Source{Name: "OSV", URL: "https://osv.dev"},
		Description: v.Summary,
		Affects:     []Affects{{Ref: ref}},
	}
	if version != "" {
		vuln.Affects[0].Versions = []AffectedVersion{{Version: version}}
	}
	if v.CVSS > 0 || (v.Severity != "" && v.Severity != "UNKNOWN") {
		vuln.Ratings = []Rating{{Score: v.CVSS, Severity: strings.ToLower(v.Severity), Method: "CVSSv3"}}
	}
	state := "in_triage"
	if v.CisaKev {
		state = "exploitable"
	}
	vuln.Analysis = &Analysis{State: state}
	if v.FixedIn != "" {
		vuln.Recommendation = fmt.Sprintf("Upgrade to %s", v.FixedIn)
	}
	return vuln
}

// NewSerialUUID is the production newUUID implementation passed to
// Emit; exposed as a var so callers don't import google/uuid directly.
var NewSerialUUID = func() string {
	return uuid.New().String()
}
