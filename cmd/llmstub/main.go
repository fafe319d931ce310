// Command llmstub is a deterministic OpenAI-compatible endpoint for local
// runs and smoke tests. It answers the optimizer's batch prompt with
// canned rewrites so the pipeline can be exercised without a real model.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

var originalLine = regexp.MustCompile(`ORIGINAL: ("(?:[^"\\]|\\.)*")`)

var actionWords = []string{
	"get", "start", "try", "buy", "join", "claim", "grab", "unlock", "download", "book",
}

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "gpt-4"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		sys := ""
		if len(req.Messages) > 0 {
			sys = strings.TrimSpace(req.Messages[0].Content)
		}
		if !strings.Contains(sys, "conversion rate optimization") {
			http.Error(w, "unexpected system", http.StatusBadRequest)
			return
		}
		user := ""
		if len(req.Messages) >= 2 {
			user = req.Messages[1].Content
		}

		opts := make([]map[string]any, 0, 8)
		for _, m := range originalLine.FindAllStringSubmatch(user, -1) {
			text, err := strconv.Unquote(m[1])
			if err != nil {
				continue
			}
			opts = append(opts, map[string]any{
				"optimized_text":        improve(text),
				"improvement_rationale": "Adds an action verb and urgency to prompt an immediate click",
				"confidence_score":      0.8,
				"optimization_type":     "action_language",
				"action_oriented":       true,
				"urgency_level":         6,
			})
		}
		payload := map[string]any{
			"optimizations": opts,
			"general_recommendations": []string{
				"Lead with the benefit, not the mechanism",
				"Keep one primary CTA per screen",
			},
		}
		b, _ := json.Marshal(payload)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": string(b)}},
			},
		})
	})

	log.Printf("llmstub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

// improve applies a fixed rewrite so repeated runs stay comparable.
func improve(original string) string {
	text := strings.TrimSpace(original)
	if text == "" {
		return "Get Started Now"
	}
	lower := strings.ToLower(text)
	starts := false
	for _, w := range actionWords {
		if strings.HasPrefix(lower, w+" ") || lower == w {
			starts = true
			break
		}
	}
	if !starts {
		text = "Get " + text
	}
	if !strings.Contains(lower, "now") && !strings.Contains(lower, "today") {
		text += " Today"
	}
	return text
}
