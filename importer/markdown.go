package importer

import (
	"fmt"
	"strings"
)

// Block is a fenced diagram block found in a Markdown document.
type Block struct {
	Lang      string // mermaid or d2
	Content   string
	StartLine int // line of the opening fence, 0-based
	EndLine   int // line of the closing fence
}

// Summary describes the block in one line.
func (b Block) Summary() string {
	preview := ""
	for _, line := range strings.Split(b.Content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			preview = line
			break
		}
	}
	if len(preview) > 50 {
		preview = preview[:47] + "..."
	}
	return fmt.Sprintf("%s (line %d): %s", b.Lang, b.StartLine+1, preview)
}

// ScanBlocks returns the mermaid and d2 fenced blocks of a Markdown
// document in order. Block content has the fence's indentation removed. An
// unterminated fence is ignored.
func ScanBlocks(content string) []Block {
	var (
		blocks []Block
		cur    *Block
		indent string
		body   []string
	)
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if cur == nil {
			if !strings.HasPrefix(trimmed, "```") {
				continue
			}
			lang := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "```")))
			if lang != "mermaid" && lang != "d2" {
				continue
			}
			cur = &Block{Lang: lang, StartLine: i}
			indent = line[:len(line)-len(trimmed)]
			body = body[:0]
			continue
		}
		if strings.HasPrefix(trimmed, "```") {
			cur.EndLine = i
			cur.Content = strings.Join(body, "\n")
			blocks = append(blocks, *cur)
			cur = nil
			continue
		}
		body = append(body, strings.TrimPrefix(line, indent))
	}
	return blocks
}

// MarkdownImporter imports one diagram block embedded in a Markdown
// document, using the importer for the block's language.
type MarkdownImporter struct {
	// Block selects the block by position; 0 is the first.
	Block int

	mermaid *MermaidImporter
	d2      *D2Importer
}

// NewMarkdownImporter creates an importer for the first diagram block.
func NewMarkdownImporter() *MarkdownImporter {
	return &MarkdownImporter{mermaid: NewMermaidImporter(), d2: NewD2Importer()}
}

// CanImport reports whether content holds at least one diagram block.
func (m *MarkdownImporter) CanImport(content string) bool {
	return len(ScanBlocks(content)) > 0
}

// Import imports the selected block.
func (m *MarkdownImporter) Import(content string) (*Graph, error) {
	blocks := ScanBlocks(content)
	if len(blocks) == 0 {
		return nil, fmt.Errorf("markdown: no mermaid or d2 block")
	}
	if m.Block < 0 || m.Block >= len(blocks) {
		return nil, fmt.Errorf("markdown: block %d out of range (%d blocks)", m.Block, len(blocks))
	}
	b := blocks[m.Block]
	var (
		g   *Graph
		err error
	)
	switch b.Lang {
	case "d2":
		g, err = m.d2.Import(b.Content)
	default:
		g, err = m.mermaid.Import(b.Content)
	}
	if err != nil {
		return nil, fmt.Errorf("markdown block at line %d: %w", b.StartLine+1, err)
	}
	return g, nil
}

// GetFormatName returns the format name
func (m *MarkdownImporter) GetFormatName() string { return "Markdown" }

// GetFileExtensions returns common file extensions
func (m *MarkdownImporter) GetFileExtensions() []string { return []string{".md", ".markdown"} }
