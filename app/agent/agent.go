// Package agent is the generative-answer collaborator: given a question and
// assembled context it asks a configured LLM for prose. The answer pipeline
// works without it; it only rewrites the extracted answer when configured.
package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"wikirag/types"

	"github.com/pkoukk/tiktoken-go"
)

type GenerateRequest struct {
	Model  string `json:"model"`
	System string `json:"system"`
	Prompt string `json:"prompt"`
}

type GenerateResponse struct {
	Response string `json:"response"`
}

const defaultSystem = `You are a helpdesk assistant for an internal company wiki.
Answer clearly and to the point using only the provided context.
If the context is empty or does not contain the answer, say 'No information for this request.'
Do not add introductions like 'Of course!' or 'Here is the answer:'`

func GenerateAnswer(context, question string, cfg types.LLMConfig) (string, error) {
	start := time.Now()
	defer func() {
		fmt.Printf("LLM answer took %v\n", time.Since(start))
	}()

	system := cfg.PromptStr
	if system == "" {
		system = defaultSystem
	}

	prompt := fmt.Sprintf(`Answer the question based on the given context. If the context holds no information for it, answer 'No information for this request'. Nothing else.
Context:
%s
Question:
%s
Answer:`, context, question)

	reqBody, err := json.Marshal(GenerateRequest{
		Model:  cfg.Model,
		System: system,
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}

	if count, err := CountPromptTokens(reqBody); err == nil {
		fmt.Println("Size of prompt with system in tokens:", count)
	}

	resp, err := http.Post(cfg.URL, "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(body, &genResp); err == nil && genResp.Response != "" {
		return genResp.Response, nil
	}

	// Streaming response: collect the fragments into one string.
	type StreamChunk struct {
		Response string `json:"response"`
	}
	var output string
	decoder := json.NewDecoder(bytes.NewReader(body))
	for decoder.More() {
		var chunk StreamChunk
		if err := decoder.Decode(&chunk); err == nil {
			output += chunk.Response
		}
	}
	return output, nil
}

func CountPromptTokens(data []byte) (int, error) {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return 0, err
	}
	tokens := enc.Encode(string(data), nil, nil)
	return len(tokens), nil
}
