// Package ooxml reads parts and relationships from Office Open XML zip packages.
package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	MainDocumentPart = "word/document.xml"
	DefaultCorePart  = "docProps/core.xml"

	relTypeCoreSuffix = "/metadata/core-properties"
)

// maximum uncompressed size of a single part
var maxPartSize = 256 << 20

// Relationship is one entry of a .rels part
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type relationships struct {
	Items []Relationship `xml:"Relationship"`
}

// Package is an opened OOXML container
type Package struct {
	files map[string]*zip.File
}

// Open parses data as a zip archive
func Open(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip container: %w", err)
	}

	p := &Package{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		// part names are case-insensitive
		p.files[strings.ToLower(strings.TrimPrefix(f.Name, "/"))] = f
	}
	return p, nil
}

// Has reports whether the named part exists
func (p *Package) Has(name string) bool {
	_, ok := p.files[strings.ToLower(strings.TrimPrefix(name, "/"))]
	return ok
}

// ReadPart returns the uncompressed content of the named part
func (p *Package) ReadPart(name string) ([]byte, error) {
	f, ok := p.files[strings.ToLower(strings.TrimPrefix(name, "/"))]
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open part %s: %w", name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, int64(maxPartSize)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read part %s: %w", name, err)
	}
	if len(content) > maxPartSize {
		return nil, fmt.Errorf("part %s exceeds %d bytes", name, maxPartSize)
	}
	return content, nil
}

// Relationships reads the .rels part belonging to source ("" for the package itself).
// Targets are resolved to absolute part names; external targets are dropped.
func (p *Package) Relationships(source string) (map[string]Relationship, error) {
	relsName := relsPartName(source)
	if !p.Has(relsName) {
		return map[string]Relationship{}, nil
	}

	content, err := p.ReadPart(relsName)
	if err != nil {
		return nil, err
	}

	var rels relationships
	if err := xml.Unmarshal(content, &rels); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", relsName, err)
	}

	out := make(map[string]Relationship, len(rels.Items))
	for _, r := range rels.Items {
		if strings.EqualFold(r.TargetMode, "External") {
			continue
		}
		r.Target = ResolveTarget(source, r.Target)
		out[r.ID] = r
	}
	return out, nil
}

// CorePropertiesPart locates the core properties part through the package relationships,
// falling back to docProps/core.xml.
func (p *Package) CorePropertiesPart() (string, bool) {
	rels, err := p.Relationships("")
	if err == nil {
		for _, r := range rels {
			if strings.HasSuffix(r.Type, relTypeCoreSuffix) && p.Has(r.Target) {
				return r.Target, true
			}
		}
	}
	if p.Has(DefaultCorePart) {
		return DefaultCorePart, true
	}
	return "", false
}

// ResolveTarget turns a relationship target into a part name relative to the package root
func ResolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return strings.TrimPrefix(path.Join(path.Dir("/"+source), target), "/")
}

func relsPartName(source string) string {
	if source == "" {
		return "_rels/.rels"
	}
	dir, file := path.Split(source)
	return dir + "_rels/" + file + ".rels"
}
