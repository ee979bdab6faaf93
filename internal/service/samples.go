package service

import (
	"context"
	"fmt"
)

// SampleDocuments is the small built-in corpus used for demos.
var SampleDocuments = []string{
	"The capital of France is Paris. Paris is known for the Eiffel Tower.",
	"Mount Everest is the highest mountain in the world. It is located in the Himalayas.",
	"The quick brown fox jumps over the lazy dog. The lazy dog then barked.",
	"ASP.NET Core MVC is a framework for building web applications using the Model-View-Controller design pattern.",
	"Ollama is a tool for running large language models locally on your machine.",
}

// SeedSamples ingests SampleDocuments as sample-1 to sample-5.
func (s *RAGService) SeedSamples(ctx context.Context) (int, error) {
	stored := 0
	for i, text := range SampleDocuments {
		report, err := s.Ingest(ctx, text, fmt.Sprintf("sample-%d", i+1))
		if err != nil {
			return stored, err
		}
		stored += report.Stored
	}
	return stored, nil
}
