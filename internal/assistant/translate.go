package assistant

import (
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// groceryNames maps English grocery names to their names in Nigerian languages.
//
//go:embed grocery_names.tsv
var groceryNames string

const translateInstruction = "You are an assistant that converts the names of groceries in local Nigerian languages " +
	"and dialects, or a description of what the shopper needs, to a single English item name from the given context.\n" +
	">>Example {userprompt : i need something starchy , response : yam}<<\n" +
	"Your final answer should only come from this table: {{%s}}\n" +
	"Your response should only contain the final word in English and nothing more."

// localNames indexes every local and English name, lower-cased, to its English name.
var localNames = indexGroceryNames(groceryNames)

func indexGroceryNames(table string) map[string]string {
	index := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(table))
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		cols := strings.Split(sc.Text(), "\t")
		if len(cols) < 2 {
			continue
		}
		english := strings.TrimSpace(cols[1])
		for _, name := range cols[1:] {
			key := strings.ToLower(strings.TrimSpace(name))
			if key == "" {
				continue
			}
			// first row wins for names shared by several items
			if _, ok := index[key]; !ok {
				index[key] = english
			}
		}
	}
	return index
}

// LookupLocalName resolves an exact local or English name without calling the model.
func LookupLocalName(query string) (string, bool) {
	name, ok := localNames[strings.ToLower(strings.TrimSpace(query))]
	return name, ok
}

// TranslateGroceryName turns a local-language name or a description into one
// English grocery item name.
func (a *Assistant) TranslateGroceryName(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("empty query")
	}
	if name, ok := LookupLocalName(query); ok {
		return name, nil
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{
			genai.NewPartFromText(fmt.Sprintf(translateInstruction, strings.TrimSpace(groceryNames))),
		}},
		Temperature:      genai.Ptr[float32](1),
		TopP:             genai.Ptr[float32](0.95),
		TopK:             genai.Ptr[float32](40),
		MaxOutputTokens:  64,
		ResponseMIMEType: "text/plain",
	}

	resp, err := a.models.GenerateContent(ctx, a.model, []*genai.Content{
		genai.NewContentFromText(query, genai.RoleUser),
	}, config)
	if err != nil {
		a.log.Error("Gemini translate failed", zap.String("query", query), zap.Error(err))
		return "", fmt.Errorf("gemini translate: %w", err)
	}

	name := strings.Trim(strings.TrimSpace(resp.Text()), ".\"'")
	if name == "" {
		return query, nil
	}
	return name, nil
}
