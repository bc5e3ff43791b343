// Package formatter renders release trees and row listings as markdown.
package formatter

import (
	"io"
	"slices"
	"strings"

	"relnotes/internal/release"
)

// Default document texts.
const (
	DefaultTitle = "Release Notes"
	DefaultIntro = "本页列出 d.run 各项功能的一些重要变更。"
)

var labels = map[string]string{
	release.UpdateTypeNewFeature:  "🚀 新功能",
	release.UpdateTypeEnhancement: "⚡ 增强优化",
	release.UpdateTypeBugfix:      "🐛 故障修复",
	release.NoUpdateType:          "",
}

// Label returns the heading text of an update type and whether the type is
// rendered at all. NoUpdateType is rendered without a heading.
func Label(updateType string) (string, bool) {
	label, ok := labels[updateType]

	return label, ok
}

// HeadingLabels returns the non-empty update type headings in display order.
func HeadingLabels() []string {
	var out []string

	for _, t := range release.UpdateTypes() {
		if label := labels[t]; label != "" {
			out = append(out, label)
		}
	}

	return out
}

// Document holds the fixed texts placed above the release sections.
type Document struct {
	Title string
	Intro string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTitle overrides the top-level heading.
func WithTitle(title string) Option {
	return func(r *Renderer) {
		r.doc.Title = title
	}
}

// WithIntro overrides the introductory sentence.
func WithIntro(intro string) Option {
	return func(r *Renderer) {
		r.doc.Intro = intro
	}
}

// Renderer turns a release tree into a markdown document.
type Renderer struct {
	doc Document
}

// NewRenderer creates a renderer with the default document texts.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{doc: Document{Title: DefaultTitle, Intro: DefaultIntro}}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Lines returns the document as lines. Some lines end with "\n" to produce
// the blank line that follows headings once joined.
func (r *Renderer) Lines(tree *release.Tree) []string {
	lines := []string{
		"---",
		"hide:",
		"  - toc",
		"---\n",
		"# " + r.doc.Title + "\n",
		r.doc.Intro + "\n",
	}

	for _, dg := range tree.Dates {
		lines = append(lines, "## "+dg.Heading+"\n")

		for _, mg := range dg.Modules {
			for _, vg := range mg.Versions {
				lines = append(lines, "### "+mg.Module+" "+vg.Version+"\n")

				for _, updateType := range release.UpdateTypes() {
					tg, ok := vg.Type(updateType)
					if !ok {
						continue
					}

					if label := labels[updateType]; label != "" {
						lines = append(lines, "#### "+label+"\n")
					}

					for _, e := range tg.Entries {
						lines = append(lines, bullet(e))
					}

					lines = append(lines, "")
				}
			}
		}
	}

	return lines
}

func bullet(e release.Entry) string {
	if e.BaselineParams != "" {
		return "- [" + e.PrimaryFeature + "] " + e.BaselineParams
	}

	return "- [" + e.PrimaryFeature + "]"
}

// RenderString returns the document text.
func (r *Renderer) RenderString(tree *release.Tree) string {
	return strings.Join(r.Lines(tree), "\n")
}

// Render writes the document text to w.
func (r *Renderer) Render(tree *release.Tree, w io.Writer) error {
	_, err := io.WriteString(w, r.RenderString(tree))

	return err
}

// RenderMarkdown writes tree to w using the default document texts.
func RenderMarkdown(tree *release.Tree, w io.Writer) error {
	return NewRenderer().Render(tree, w)
}

// RenderMarkdownString renders tree using the default document texts.
func RenderMarkdownString(tree *release.Tree) string {
	return NewRenderer().RenderString(tree)
}

// UnrenderedTypes lists update types present in tree that have no display
// slot, sorted and without duplicates. Their entries are left out of the document.
func UnrenderedTypes(tree *release.Tree) []string {
	var out []string

	for _, dg := range tree.Dates {
		for _, mg := range dg.Modules {
			for _, vg := range mg.Versions {
				for _, tg := range vg.Types {
					if _, ok := labels[tg.UpdateType]; !ok {
						out = append(out, tg.UpdateType)
					}
				}
			}
		}
	}

	slices.Sort(out)

	return slices.Compact(out)
}
