// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/pdiddy/genegap/internal/llm"
)

// extractionPromptTmpl is sent once per batch of abstracts. It asks for
// genes with the PMIDs they occur in so mentions can be counted per article.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`Analyze these plant genomics abstracts and extract:
1. Gene names (gene symbols like AT1G01010 or DREB2A, full names like FLOWERING LOCUS T)
2. Organism names (scientific names like Arabidopsis thaliana)
3. Any gene functions or roles mentioned

For every gene list the PMIDs of the abstracts that mention it.
Do not report generic terms such as DNA, RNA, QTL, SNP or GWAS as genes.

Return ONLY a valid JSON object in this exact format (no other text):
{"genes": [{"name": "gene_name", "symbol": "gene_symbol_if_any", "function": "brief_function_if_mentioned", "pmids": ["12345678"]}],
 "organisms": [{"scientific_name": "full_name", "common_name": "common_name_if_known"}]}

Abstracts:
{{.Batch}}
JSON output:`))

// LLMBackend extracts genes through the local language model.
type LLMBackend struct {
	Client *llm.Client
}

// Extract sends one batch to the model and decodes the JSON answer.
func (b *LLMBackend) Extract(ctx context.Context, batch, model string) (Response, error) {
	prompt, err := renderPrompt(batch)
	if err != nil {
		return Response{}, fmt.Errorf("rendering prompt: %w", err)
	}

	var resp Response
	err = b.Client.GenerateJSON(ctx, llm.Request{
		Task:        "extract",
		Model:       model,
		Prompt:      prompt,
		Temperature: 0.1,
		MaxTokens:   2000,
	}, &resp)
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}

// renderPrompt executes the extraction prompt template with the given batch.
func renderPrompt(batch string) (string, error) {
	var buf bytes.Buffer
	if err := extractionPromptTmpl.Execute(&buf, struct{ Batch string }{Batch: batch}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
