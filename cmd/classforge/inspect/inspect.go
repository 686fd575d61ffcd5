// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/classforge/cmd/classforge/cli"
	"github.com/bureau-foundation/classforge/lib/classfile"
	"github.com/bureau-foundation/classforge/lib/config"
	"github.com/bureau-foundation/classforge/lib/keytable"
	"github.com/bureau-foundation/classforge/lib/remap"
)

type inspectParams struct {
	cli.ConfigFile
	cli.JSONOutput
	Renamed bool `json:"renamed" flag:"renamed" desc:"list only names the rename table changes"`
}

// InspectCommand returns the "inspect" command.
func InspectCommand() *cli.Command {
	var params inspectParams

	return &cli.Command{
		Name:    "inspect",
		Summary: "List the declarations and references of a class file",
		Description: `Print a class file's name, version, supertypes, declared members, and
every class and member it references through its constant pool. Each
name the configured rename table would change is shown with its new
name, which makes it easy to audit remap coverage before a run.

A class whose header marks it as obfuscated cannot be parsed; inspect
reports that instead. Decode it first with "classforge transform".`,
		Usage:  "classforge inspect [flags] <class-file>",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one class file, got %d arguments", len(args))
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cfg, err := params.LoadConfig()
			if err != nil {
				return err
			}
			inspector, err := newInspector(cfg)
			if err != nil {
				return err
			}

			report, err := inspector.inspect(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if params.Renamed {
				report = report.renamedOnly()
			}
			if done, err := params.EmitJSON(os.Stdout, report); done {
				return err
			}
			report.writeText(os.Stdout)
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "List everything a class references",
				Command:     "classforge inspect com/maddox/il2/game/Main.class",
			},
			{
				Description: "Show only the references a custom table renames",
				Command:     "classforge inspect --config tables.yaml --renamed Main.class",
			},
		},
	}
}

// inspector holds the configured tables a report is checked against.
type inspector struct {
	namespace string
	table     *remap.Table
	skip      *remap.SkipSet
	decoder   *keytable.Decoder
}

func newInspector(cfg *config.Config) (*inspector, error) {
	table, err := cfg.RemapTable()
	if err != nil {
		return nil, err
	}
	result := &inspector{namespace: cfg.Namespace, table: table, skip: cfg.SkipSet()}
	options, err := cfg.KeyTables()
	if err != nil {
		return nil, err
	}
	if options != nil {
		if result.decoder, err = keytable.New(*options); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// classReport describes one class file.
type classReport struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Header      string            `json:"header"`
	Obfuscated  bool              `json:"obfuscated"`
	InNamespace bool              `json:"in_namespace"`
	Skipped     bool              `json:"skipped"`
	Super       string            `json:"super,omitempty"`
	Interfaces  []string          `json:"interfaces"`
	Fields      []memberReport    `json:"fields"`
	Methods     []memberReport    `json:"methods"`
	Classes     []classReference  `json:"classes"`
	References  []memberReference `json:"references"`
}

type memberReport struct {
	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
	Rename     string `json:"rename,omitempty"`
}

type classReference struct {
	Name   string `json:"name"`
	Rename string `json:"rename,omitempty"`
}

type memberReference struct {
	Kind       string `json:"kind"`
	Owner      string `json:"owner"`
	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
	Rename     string `json:"rename,omitempty"`
}

func (in *inspector) inspect(data []byte) (classReport, error) {
	var report classReport
	if len(data) >= keytable.HeaderSize {
		var header keytable.Header
		copy(header[:], data)
		report.Header = header.String()
	}
	if in.decoder != nil && in.decoder.NeedsDecoding(data) {
		report.Obfuscated = true
		return report, nil
	}

	cf, err := classfile.Parse(data)
	if err != nil {
		return report, err
	}
	pool := cf.Pool

	if report.Name, err = cf.Name(); err != nil {
		return report, err
	}
	report.Version = fmt.Sprintf("%d.%d", cf.Major, cf.Minor)
	report.InNamespace = strings.HasPrefix(report.Name, in.namespace)
	report.Skipped = in.skip.Contains(report.Name)
	if cf.SuperClass != 0 {
		if report.Super, err = pool.ClassName(cf.SuperClass); err != nil {
			return report, err
		}
	}
	report.Interfaces = make([]string, 0, len(cf.Interfaces))
	for _, index := range cf.Interfaces {
		name, err := pool.ClassName(index)
		if err != nil {
			return report, err
		}
		report.Interfaces = append(report.Interfaces, name)
	}

	if report.Fields, err = in.members(cf, cf.Fields, report.Name, false); err != nil {
		return report, err
	}
	if report.Methods, err = in.members(cf, cf.Methods, report.Name, true); err != nil {
		return report, err
	}

	report.Classes = []classReference{}
	report.References = []memberReference{}
	for index := 1; index < pool.Count(); index++ {
		if !pool.Valid(uint16(index)) {
			// Second slot of a Long or Double.
			continue
		}
		constant, err := pool.Get(uint16(index))
		if err != nil {
			return report, err
		}
		switch {
		case constant.Tag == classfile.TagClass:
			name, err := pool.ClassName(uint16(index))
			if err != nil {
				return report, err
			}
			reference := classReference{Name: name}
			if mapped, err := classfile.MapClassName(name, in.table.MapType); err == nil && mapped != name {
				reference.Rename = mapped
			}
			report.Classes = append(report.Classes, reference)
		case constant.Tag.IsMemberRef():
			ref, err := pool.MemberRef(uint16(index))
			if err != nil {
				return report, err
			}
			report.References = append(report.References, in.memberReference(ref))
		}
	}
	sort.Slice(report.Classes, func(i, j int) bool { return report.Classes[i].Name < report.Classes[j].Name })
	sort.Slice(report.References, func(i, j int) bool {
		a, b := report.References[i], report.References[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Descriptor < b.Descriptor
	})
	return report, nil
}

func (in *inspector) members(cf *classfile.ClassFile, members []classfile.Member, owner string, methods bool) ([]memberReport, error) {
	reports := make([]memberReport, 0, len(members))
	for _, member := range members {
		name, descriptor, err := cf.MemberName(member)
		if err != nil {
			return nil, err
		}
		report := memberReport{Name: name, Descriptor: descriptor}
		if methods {
			report.Rename, _ = in.table.Method(owner, name, descriptor)
		} else {
			report.Rename, _ = in.table.Field(owner, name)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (in *inspector) memberReference(ref classfile.MemberRef) memberReference {
	reference := memberReference{
		Kind:       ref.Tag.String(),
		Owner:      ref.Owner,
		Name:       ref.Name,
		Descriptor: ref.Descriptor,
	}
	if ref.Tag == classfile.TagFieldref {
		reference.Rename, _ = in.table.Field(ref.Owner, ref.Name)
	} else {
		reference.Rename, _ = in.table.Method(ref.Owner, ref.Name, ref.Descriptor)
	}
	return reference
}

// renamedOnly drops every member and reference the table leaves alone.
func (r classReport) renamedOnly() classReport {
	filtered := r
	filtered.Fields = filterRenamed(r.Fields, func(m memberReport) bool { return m.Rename != "" })
	filtered.Methods = filterRenamed(r.Methods, func(m memberReport) bool { return m.Rename != "" })
	filtered.Classes = filterRenamed(r.Classes, func(c classReference) bool { return c.Rename != "" })
	filtered.References = filterRenamed(r.References, func(m memberReference) bool { return m.Rename != "" })
	return filtered
}

func filterRenamed[T any](items []T, keep func(T) bool) []T {
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			kept = append(kept, item)
		}
	}
	return kept
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	renameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	noteStyle    = lipgloss.NewStyle().Faint(true)
)

func renamed(to string) string {
	if to == "" {
		return ""
	}
	return renameStyle.Render("-> " + to)
}

func (r classReport) writeText(w io.Writer) {
	if r.Obfuscated {
		fmt.Fprintf(w, "%s\n", headingStyle.Render("obfuscated class"))
		fmt.Fprintf(w, "header %s does not match the expected class header; decode it with a key table first\n", r.Header)
		return
	}

	title := "class " + r.Name
	fmt.Fprintln(w, headingStyle.Render(title))
	notes := []string{"version " + r.Version}
	if !r.InNamespace {
		notes = append(notes, "outside the namespace")
	}
	if r.Skipped {
		notes = append(notes, "never remapped")
	}
	fmt.Fprintln(w, noteStyle.Render(strings.Join(notes, ", ")))
	if r.Super != "" {
		fmt.Fprintf(w, "extends %s\n", r.Super)
	}
	if len(r.Interfaces) > 0 {
		fmt.Fprintf(w, "implements %s\n", strings.Join(r.Interfaces, ", "))
	}

	section := func(name string, count int) *tabwriter.Writer {
		fmt.Fprintf(w, "\n%s\n", headingStyle.Render(fmt.Sprintf("%s (%d)", name, count)))
		return tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	}

	tw := section("fields", len(r.Fields))
	for _, field := range r.Fields {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", field.Name, field.Descriptor, renamed(field.Rename))
	}
	tw.Flush()

	tw = section("methods", len(r.Methods))
	for _, method := range r.Methods {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", method.Name, method.Descriptor, renamed(method.Rename))
	}
	tw.Flush()

	tw = section("referenced classes", len(r.Classes))
	for _, class := range r.Classes {
		fmt.Fprintf(tw, "  %s\t%s\n", class.Name, renamed(class.Rename))
	}
	tw.Flush()

	tw = section("member references", len(r.References))
	for _, reference := range r.References {
		fmt.Fprintf(tw, "  %s\t%s.%s\t%s\t%s\n", reference.Kind, reference.Owner, reference.Name, reference.Descriptor, renamed(reference.Rename))
	}
	tw.Flush()
}
