package classify

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	codePrefixRe = regexp.MustCompile(`^\d+(\.\d+)*\s*-?\s*`)
	yearRe       = regexp.MustCompile(`\b(20\d{2})\b`)
	dateRes      = []*regexp.Regexp{
		regexp.MustCompile(`(\d{2}[-/]\d{2}[-/]\d{4})`),
		regexp.MustCompile(`(\d{4}[-/]\d{2}[-/]\d{2})`),
	}
	placeholderRe = regexp.MustCompile(`\{([a-z_]+)\}`)
	multiSepRe    = regexp.MustCompile(`_{2,}`)
)

// prepositions are the short connector words dropped from the middle of
// employee names.
var prepositions = map[string]bool{
	"de": true, "da": true, "do": true, "dos": true, "das": true, "e": true,
}

// GenerateStandardizedName computes the canonical file name for a document
// from the folder's naming template. On any substitution failure the
// original name is returned unchanged; this function never fails past that
// point.
func (c *Classifier) GenerateStandardizedName(docType, folderType, employeeCode, employeeName, originalName string) string {
	folder := c.taxonomy.Folder(folderType)
	if folder == nil {
		return originalName
	}
	template := folder.Template
	if template == "" {
		template = "{tipo}_{nome_func}"
	}

	ext := filepath.Ext(originalName)
	fields := map[string]string{
		"tipo":        docType,
		"codigo_func": employeeCode,
		"nome_func":   CleanEmployeeName(employeeName),
		"ano":         extractYear(originalName),
		"data":        extractDate(originalName),
		"ext":         strings.TrimPrefix(ext, "."),
	}

	missing := false
	name := placeholderRe.ReplaceAllStringFunc(template, func(ph string) string {
		key := ph[1 : len(ph)-1]
		v, ok := fields[key]
		if !ok {
			missing = true
		}
		return v
	})
	if missing {
		return originalName
	}

	// Empty fields leave runs of separators behind.
	name = multiSepRe.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return originalName
	}

	if !strings.HasSuffix(name, ext) {
		name += ext
	}
	return name
}

// CleanEmployeeName reduces a full employee name to the tokens used in
// canonical file names: the leading numeric code is stripped, middle
// connector words are dropped, first and last tokens are always kept, and
// long names collapse to first plus last.
func CleanEmployeeName(fullName string) string {
	name := codePrefixRe.ReplaceAllString(fullName, "")
	words := strings.Fields(name)
	if len(words) == 0 {
		return ""
	}
	if len(words) > 3 {
		return words[0] + "_" + words[len(words)-1]
	}

	filtered := make([]string, 0, len(words))
	for i, w := range words {
		if i == 0 || i == len(words)-1 {
			filtered = append(filtered, w)
			continue
		}
		if !prepositions[strings.ToLower(w)] {
			filtered = append(filtered, w)
		}
	}
	return strings.Join(filtered, "_")
}

// extractYear finds a four-digit year in the original file name.
func extractYear(fileName string) string {
	if m := yearRe.FindString(fileName); m != "" {
		return m
	}
	return ""
}

// extractDate finds a date in the original file name, normalised to
// dash separators. When absent, today's date is used so date-templated
// folders still get a usable name.
func extractDate(fileName string) string {
	for _, re := range dateRes {
		if m := re.FindString(fileName); m != "" {
			return strings.ReplaceAll(m, "/", "-")
		}
	}
	return time.Now().Format("2006-01-02")
}
