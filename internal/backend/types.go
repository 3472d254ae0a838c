package backend

// Wire types for the Gemini generateContent API (v1beta).

// Part is one piece of a content message: text, a tool call requested by the
// model, or a tool result sent back to it.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// FunctionCall is a tool invocation requested by the model.
type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponse carries a tool result back, keyed by the call's id.
type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// Content is one turn of the conversation.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Schema describes a tool parameter (subset of OpenAPI schema).
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// FunctionDeclaration describes one callable tool to the model.
type FunctionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Tool is one entry of the tools array: either a set of function
// declarations or a built-in capability such as web search.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations,omitempty"`
	GoogleSearch         *GoogleSearch         `json:"googleSearch,omitempty"`
}

// GoogleSearch enables the service-side web grounding capability.
type GoogleSearch struct{}

// GenerateRequest is the request body for generateContent.
type GenerateRequest struct {
	SystemInstruction *Content  `json:"system_instruction,omitempty"`
	Contents          []Content `json:"contents"`
	Tools             []Tool    `json:"tools,omitempty"`
}

// GenerateResponse is the response from generateContent.
type GenerateResponse struct {
	Candidates []Candidate    `json:"candidates"`
	Usage      map[string]any `json:"usageMetadata,omitempty"`
}

// Candidate is one generated answer, with optional grounding metadata.
type Candidate struct {
	Content           Content            `json:"content"`
	FinishReason      string             `json:"finishReason,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

// GroundingMetadata lists the sources the model used for a grounded answer.
type GroundingMetadata struct {
	GroundingChunks []GroundingChunk `json:"groundingChunks,omitempty"`
}

// GroundingChunk is one cited source.
type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty"`
}

// WebSource is a web page cited as grounding.
type WebSource struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

func (r *GenerateResponse) candidate() *Candidate {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	return &r.Candidates[0]
}

// Text concatenates the text parts of the first candidate.
func (r *GenerateResponse) Text() string {
	cand := r.candidate()
	if cand == nil {
		return ""
	}
	var text string
	for _, part := range cand.Content.Parts {
		text += part.Text
	}
	return text
}

// FunctionCalls returns the tool calls requested by the first candidate,
// in the order the model issued them.
func (r *GenerateResponse) FunctionCalls() []FunctionCall {
	cand := r.candidate()
	if cand == nil {
		return nil
	}
	var calls []FunctionCall
	for _, part := range cand.Content.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, *part.FunctionCall)
		}
	}
	return calls
}

// GroundingSources returns the cited web URIs in response order.
// Duplicates are preserved; callers decide on deduplication.
func (r *GenerateResponse) GroundingSources() []string {
	cand := r.candidate()
	if cand == nil || cand.GroundingMetadata == nil {
		return nil
	}
	var sources []string
	for _, chunk := range cand.GroundingMetadata.GroundingChunks {
		if chunk.Web != nil && chunk.Web.URI != "" {
			sources = append(sources, chunk.Web.URI)
		}
	}
	return sources
}
