// Package output renders run events and parsed structures in the supported formats.
package output

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tyemirov/mktree/internal/treeparse"
	"github.com/tyemirov/mktree/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "
	yamlIndent   = 2

	xmlHeader = xml.Header

	currentDirectoryName = "."

	unsupportedFormatErrorFormat = "unsupported format %q"
)

type structureNode struct {
	name     string
	kind     string
	children []*structureNode
}

// RenderStructure writes a parsed structure in the requested format.
func RenderStructure(writer io.Writer, format string, structure types.StructureOutput) error {
	switch format {
	case types.FormatRaw:
		return WriteStructureRaw(writer, structure)
	case types.FormatTree:
		return WriteStructureTree(writer, structure)
	case types.FormatJSON:
		encoded, err := json.MarshalIndent(structure, indentPrefix, indentSpacer)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(writer, string(encoded))
		return err
	case types.FormatXML:
		encoded, err := xml.MarshalIndent(structure, indentPrefix, indentSpacer)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(writer, xmlHeader+string(encoded))
		return err
	case types.FormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(yamlIndent)
		if err := encoder.Encode(structure); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf(unsupportedFormatErrorFormat, format)
	}
}

// WriteStructureRaw prints one path per line, directories with a trailing slash.
func WriteStructureRaw(writer io.Writer, structure types.StructureOutput) error {
	for _, entry := range structure.Entries {
		if _, err := fmt.Fprintln(writer, displayPath(entry.Path, entry.Kind)); err != nil {
			return err
		}
	}
	return nil
}

// WriteStructureTree re-renders the structure as a canonical tree diagram that
// parses back into the same entries.
func WriteStructureTree(writer io.Writer, structure types.StructureOutput) error {
	rootName := structure.Root
	if rootName == "" {
		rootName = currentDirectoryName
	}
	root := buildStructureTree(rootName, structure.Entries)
	var builder strings.Builder
	renderStructureNode(&builder, root, "", true, true)
	_, err := io.WriteString(writer, builder.String())
	return err
}

// buildStructureTree nests entries under their parent paths. Parents that were
// never declared are added as directories so every entry stays reachable.
func buildStructureTree(rootName string, entries []types.EntryOutput) *structureNode {
	root := &structureNode{name: rootName, kind: types.KindDirectory}
	nodes := map[string]*structureNode{"": root}
	var ensure func(entryPath string, kind string) *structureNode
	ensure = func(entryPath string, kind string) *structureNode {
		if node, exists := nodes[entryPath]; exists {
			if kind != "" {
				node.kind = kind
			}
			return node
		}
		parentPath := path.Dir(entryPath)
		if parentPath == currentDirectoryName {
			parentPath = ""
		}
		parent := ensure(parentPath, "")
		if kind == "" {
			kind = types.KindDirectory
		}
		node := &structureNode{name: path.Base(entryPath), kind: kind}
		nodes[entryPath] = node
		parent.children = append(parent.children, node)
		return node
	}
	for _, entry := range entries {
		ensure(entry.Path, entry.Kind)
	}
	return root
}

func treeNodeLinePrefix(prefix string, isRoot bool, isLast bool) (string, string) {
	if isRoot {
		return "", ""
	}
	connector := treeparse.BranchMarker
	childPrefix := prefix + treeparse.ContinuationUnit
	if isLast {
		connector = treeparse.LastBranchMarker
		childPrefix = prefix + treeparse.BlankUnit
	}
	return prefix + connector, childPrefix
}

func renderStructureNode(builder *strings.Builder, node *structureNode, prefix string, isRoot bool, isLast bool) {
	linePrefix, childPrefix := treeNodeLinePrefix(prefix, isRoot, isLast)
	builder.WriteString(linePrefix)
	builder.WriteString(displayPath(node.name, node.kind))
	builder.WriteString("\n")
	for index, child := range node.children {
		renderStructureNode(builder, child, childPrefix, false, index == len(node.children)-1)
	}
}
