package ingest

import (
	"fmt"
	"strings"

	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
)

type extraction struct {
	text      string
	pageCount int
	title     string
}

func extractText(path string, docType commonModels.DocType) (extraction, error) {
	switch docType {
	case commonModels.PDF:
		pages, err := extractPDF(path)
		if err != nil {
			return extraction{}, err
		}
		return extraction{text: joinPages(pages), pageCount: len(pages)}, nil

	case commonModels.DOCX:
		pages, err := extractDocx(path)
		if err != nil {
			return extraction{}, err
		}
		return extraction{text: joinPages(pages)}, nil

	case commonModels.HTML:
		pages, title, err := extractHTML(path)
		if err != nil {
			return extraction{}, err
		}
		return extraction{text: joinPages(pages), title: title}, nil

	case commonModels.TXT, commonModels.MD, commonModels.CSV, commonModels.JSON:
		pages, err := extractPlain(path)
		if err != nil {
			return extraction{}, err
		}
		return extraction{text: joinPages(pages)}, nil

	default:
		return extraction{}, fmt.Errorf("unsupported content type: %s", docType)
	}
}

func joinPages(pages []rawPage) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, p.Content)
	}
	return strings.Join(parts, "\n\n")
}
