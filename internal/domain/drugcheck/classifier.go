package drugcheck

import "regexp"

// Config holds the classifier's cutoffs and messages so they can be tuned or
// tested without touching call sites.
type Config struct {
	// MinBatchLength is the length below which a batch number is flagged as
	// unusual.
	MinBatchLength int
	// BatchPattern is the expected batch number shape.
	BatchPattern *regexp.Regexp

	MissingBatchConfidence float64
	ShortBatchConfidence   float64
	AuthenticConfidence    float64
	BadFormatConfidence    float64

	MissingBatchWarning string
	ShortBatchWarning   string
	BadFormatWarning    string
}

// batchPattern is two uppercase letters followed by six or more digits.
var batchPattern = regexp.MustCompile(`^[A-Z]{2}\d{6,}$`)

// DefaultConfig returns the standard cutoffs.
func DefaultConfig() Config {
	return Config{
		MinBatchLength:         6,
		BatchPattern:           batchPattern,
		MissingBatchConfidence: 0.30,
		ShortBatchConfidence:   0.50,
		AuthenticConfidence:    0.75,
		BadFormatConfidence:    0.40,
		MissingBatchWarning:    "No batch number provided. Unable to fully verify authenticity.",
		ShortBatchWarning:      "Batch number format is unusual. Manual verification recommended.",
		BadFormatWarning:       "Batch number does not match expected format.",
	}
}

// Classifier is the rule-based authenticity engine. Pure, stateless, and safe
// for concurrent use.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier. A zero config falls back to defaults.
func NewClassifier(cfg Config) *Classifier {
	if cfg.BatchPattern == nil {
		cfg = DefaultConfig()
	}
	return &Classifier{cfg: cfg}
}

// Classify evaluates a batch record as a strict decision list on the batch
// number. It never fails; any image payload is ignored.
func (c *Classifier) Classify(in Input) Result {
	res := Result{
		DrugName:    in.DrugName,
		BatchNumber: in.BatchNumber,
		Source:      SourceRuleBased,
		Details:     &Details{Manufacturer: in.Manufacturer},
	}
	if res.DrugName == "" {
		res.DrugName = "Unknown Drug"
	}
	if res.Details.Manufacturer == "" {
		res.Details.Manufacturer = "Unknown"
	}

	switch {
	case in.BatchNumber == "":
		res.Status = StatusUnknown
		res.Confidence = c.cfg.MissingBatchConfidence
		res.Warning = c.cfg.MissingBatchWarning
	case len(in.BatchNumber) < c.cfg.MinBatchLength:
		res.Status = StatusSuspicious
		res.Confidence = c.cfg.ShortBatchConfidence
		res.Warning = c.cfg.ShortBatchWarning
	case c.cfg.BatchPattern.MatchString(in.BatchNumber):
		res.Status = StatusAuthentic
		res.IsAuthentic = true
		res.Confidence = c.cfg.AuthenticConfidence
	default:
		res.Status = StatusSuspicious
		res.Confidence = c.cfg.BadFormatConfidence
		res.Warning = c.cfg.BadFormatWarning
	}

	return res
}
