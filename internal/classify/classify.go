package classify

import (
	"strings"
)

// TypeUnknown is the document type assigned when no pattern or keyword
// clears the confidence floor. It is not an error: unknown documents are
// surfaced downstream for human review.
const TypeUnknown = "Desconhecido"

const (
	// minTextLength is the minimum extracted-text size for content
	// classification; shorter texts are too noisy to score.
	minTextLength = 50
	// minContentConfidence is the floor below which a content match is
	// reported as unknown.
	minContentConfidence = 0.3
	// filenameFallbackDiscount is applied when content classification was
	// attempted but no text could be extracted, leaving only the weaker
	// filename signal.
	filenameFallbackDiscount = 0.5
)

// Actions a classification can propose.
const (
	ActionRename = "rename"
	ActionKeep   = "keep"
)

// Input carries everything the classifier needs about one file.
type Input struct {
	FileName     string
	FolderType   string
	EmployeeCode string
	EmployeeName string
	// Text is the extracted document text, when available.
	Text string
	// ContentAttempted marks that text extraction was tried. When it was
	// and Text is empty, the filename result is confidence-discounted.
	ContentAttempted bool
}

// Result is the classification decision for one file.
type Result struct {
	DocumentType  string
	Confidence    float64
	SuggestedName string
	Action        string
	// TextPreview holds the leading extracted text, for reviewers.
	TextPreview string
}

// Classifier is a pure decision function over a taxonomy. It performs no
// I/O and is safe for concurrent use.
type Classifier struct {
	taxonomy *Taxonomy
}

// New creates a Classifier over the given taxonomy.
func New(tx *Taxonomy) *Classifier {
	return &Classifier{taxonomy: tx}
}

// Classify maps a file to a document type, confidence and canonical name.
func (c *Classifier) Classify(in Input) Result {
	var (
		docType    string
		confidence float64
	)

	switch {
	case len(in.Text) >= minTextLength:
		docType, confidence = c.ByContent(in.Text)
	case in.ContentAttempted:
		docType, confidence = c.ByFilename(in.FileName, in.FolderType)
		confidence *= filenameFallbackDiscount
	default:
		docType, confidence = c.ByFilename(in.FileName, in.FolderType)
	}

	suggested := c.GenerateStandardizedName(docType, in.FolderType, in.EmployeeCode, in.EmployeeName, in.FileName)

	action := ActionKeep
	if suggested != in.FileName {
		action = ActionRename
	}

	return Result{
		DocumentType:  docType,
		Confidence:    confidence,
		SuggestedName: suggested,
		Action:        action,
		TextPreview:   textPreview(in.Text),
	}
}

// ByFilename matches the file name against the folder's pattern table.
// Patterns are tried in declared order; a literal occurrence of the raw
// pattern string scores 0.8, a regex-only match 0.6, and ties keep the
// earliest best match. Unknown folders yield (Desconhecido, 0).
func (c *Classifier) ByFilename(fileName, folderType string) (string, float64) {
	folder := c.taxonomy.Folder(folderType)
	if folder == nil {
		return TypeUnknown, 0.0
	}

	lower := strings.ToLower(fileName)
	bestType := ""
	bestConfidence := 0.0

	for _, tp := range folder.Types {
		if !tp.re.MatchString(lower) {
			continue
		}
		confidence := 0.6
		if strings.Contains(lower, tp.Pattern) {
			confidence = 0.8
		}
		if confidence > bestConfidence {
			bestType = tp.Type
			bestConfidence = confidence
		}
	}

	if bestType == "" {
		return TypeUnknown, 0.0
	}
	return bestType, bestConfidence
}

// ByContent scores the extracted text against every known document type's
// keyword list. Keywords are weighted by their word count and the score is
// normalised to [0,1]. Below the confidence floor the document is unknown,
// with its raw score preserved.
func (c *Classifier) ByContent(text string) (string, float64) {
	if len(text) < minTextLength {
		return TypeUnknown, 0.0
	}

	lower := strings.ToLower(text)
	bestType := ""
	bestScore := 0.0

	for _, ks := range c.taxonomy.Keywords {
		n := float64(len(ks.Terms))
		if n == 0 {
			continue
		}
		score := 0.0
		for _, kw := range ks.Terms {
			if strings.Contains(lower, kw) {
				score += float64(len(strings.Fields(kw))) / n
			}
		}
		score = min(score/n, 1.0)
		if score > bestScore {
			bestScore = score
			bestType = ks.Type
		}
	}

	if bestScore < minContentConfidence {
		return TypeUnknown, bestScore
	}
	return bestType, bestScore
}

func textPreview(text string) string {
	const previewLen = 200
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return string(runes[:previewLen])
}
