// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package proposal drafts a research proposal for one publication gap.
package proposal

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/pdiddy/genegap/internal/llm"
	"github.com/pdiddy/genegap/internal/logging"
	"github.com/pdiddy/genegap/pkg/types"
)

// Length selects how much proposal text to draft.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthFull   Length = "full"
)

// ParseLength maps a user-supplied length to a Length. Anything
// unrecognized is medium.
func ParseLength(s string) Length {
	switch Length(strings.ToLower(strings.TrimSpace(s))) {
	case LengthShort:
		return LengthShort
	case LengthFull:
		return LengthFull
	default:
		return LengthMedium
	}
}

// Generator is the language model call used for proposals.
type Generator interface {
	Generate(ctx context.Context, r llm.Request) (string, error)
}

// Request describes the gap to write about.
type Request struct {
	Gene          string
	Source        string
	Target        string
	Length        Length
	GO            *types.GOTerms
	PriorityScore float64
	Model         string
}

// Result is the drafted proposal. Success is false when the model failed
// or returned nothing.
type Result struct {
	Success  bool   `json:"success"`
	Gene     string `json:"gene,omitempty"`
	Source   string `json:"source_species,omitempty"`
	Target   string `json:"target_species,omitempty"`
	Length   Length `json:"length,omitempty"`
	Proposal string `json:"proposal,omitempty"`
	Error    string `json:"error,omitempty"`
}

const systemPrompt = `You are a plant genomics research proposal writer.
Provide ONLY the final proposal text - no thinking, no reasoning, no explanations before the proposal.
Start directly with the proposal content. Be scientific, clear, and professional.`

var basePromptTmpl = template.Must(template.New("proposal").Parse(`You are a plant genomics researcher writing a research proposal.

Gene: {{.Gene}}
Well-studied in: {{.Source}}
Research gap in: {{.Target}}

Additional context:
{{.Context}}

This is a research gap - the gene has been studied in {{.Source}} but NOT YET in {{.Target}}.
`))

var instructions = map[Length]string{
	LengthShort: `
Write a SHORT 1-paragraph proposal (3-4 sentences) that briefly explains:
1. Why this gene is important
2. Why studying it in the target species matters
3. The key hypothesis

Be concise and scientific.`,

	LengthMedium: `
Write a MEDIUM research proposal with these sections:
1. **Background** (2-3 sentences): What is known about this gene
2. **Research Gap** (1-2 sentences): Why it needs to be studied in the target species
3. **Hypothesis** (1 sentence): Your main hypothesis
4. **Objectives** (3 bullet points): Specific aims

Be scientific but accessible.`,

	LengthFull: `
Write a FULL research proposal with these sections:
1. **Background and Significance** (1 paragraph): What is known, why it matters
2. **Research Gap** (1 paragraph): Current knowledge limitations in target species
3. **Hypothesis and Objectives** (bullet points): Main hypothesis and 3-4 specific aims
4. **Methods Overview** (bullet points): Key experimental approaches
5. **Expected Outcomes and Impact** (1 paragraph): What you expect to find and its significance

Be thorough, scientific, and compelling. This should read like a real grant proposal.`,
}

// Writer drafts proposals with a language model.
type Writer struct {
	gen Generator
	log *slog.Logger
}

// New returns a Writer using gen.
func New(gen Generator, log *slog.Logger) *Writer {
	if log == nil {
		log = logging.Discard()
	}
	return &Writer{gen: gen, log: log.With("component", "proposal")}
}

// Generate drafts the proposal described by r.
func (w *Writer) Generate(ctx context.Context, r Request) Result {
	r.Length = ParseLength(string(r.Length))

	prompt, err := renderPrompt(r)
	if err != nil {
		return Result{Error: err.Error()}
	}

	text, err := w.gen.Generate(ctx, llm.Request{
		Task:        "proposal",
		Model:       r.Model,
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: 0.7,
	})
	if err != nil {
		w.log.WarnContext(ctx, "proposal generation failed", "gene", r.Gene, "error", err)
		return Result{Error: err.Error()}
	}
	text = strings.TrimSpace(llm.StripThinking(text))
	if text == "" {
		return Result{Error: "language model returned an empty response"}
	}

	return Result{
		Success:  true,
		Gene:     r.Gene,
		Source:   r.Source,
		Target:   r.Target,
		Length:   r.Length,
		Proposal: text,
	}
}

func renderPrompt(r Request) (string, error) {
	var buf bytes.Buffer
	err := basePromptTmpl.Execute(&buf, struct {
		Gene, Source, Target, Context string
	}{r.Gene, r.Source, r.Target, buildContext(r.GO, r.PriorityScore)})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	buf.WriteString(instructions[r.Length])
	return buf.String(), nil
}

// buildContext summarizes GO annotations and the priority score for the
// prompt. Up to three processes and functions are listed.
func buildContext(goTerms *types.GOTerms, score float64) string {
	var parts []string
	if goTerms != nil && goTerms.Success {
		if goTerms.Description != "" {
			parts = append(parts, "Gene description: "+goTerms.Description)
		}
		if names := termNames(goTerms.BiologicalProcess, 3); names != "" {
			parts = append(parts, "Biological processes: "+names)
		}
		if names := termNames(goTerms.MolecularFunction, 3); names != "" {
			parts = append(parts, "Molecular functions: "+names)
		}
	}
	if score > 0 {
		parts = append(parts, fmt.Sprintf("Research priority score: %.1f (higher = more important)", score))
	}
	if len(parts) == 0 {
		return "No additional context available."
	}
	return strings.Join(parts, "\n")
}

func termNames(terms []types.GOTerm, n int) string {
	var names []string
	for i, t := range terms {
		if i == n {
			break
		}
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}
