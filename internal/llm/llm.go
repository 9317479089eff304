// Package llm is the boundary to the language-model provider. The provider is
// a black box: one instruction plus content in, one text completion out.
// There is no retry or backoff; a failed call is the caller's to report.
package llm

import "context"

// Part is one unit of request content. Either Text is set, or ImageMIME and
// ImageData are set for inline image content.
type Part struct {
	Text      string
	ImageMIME string
	ImageData []byte
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func ImagePart(mime string, data []byte) Part {
	return Part{ImageMIME: mime, ImageData: data}
}

type Request struct {
	System string
	Parts  []Part
}

type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
