package relevance

// Policy selects what a run does with the model's relevance judgement.
type Policy string

const (
	// PolicyFilter drops rows the model judges not relevant before they are accumulated.
	PolicyFilter Policy = "filter"
	// PolicyAnnotate keeps every row; the sentinel in Ringkasan allows filtering at export time.
	PolicyAnnotate Policy = "annotate"
	// PolicyNone skips relevance classification and keeps every row for manual review.
	PolicyNone Policy = "none"
)

// Options describes the run's classification mode.
type Options struct {
	Summarize bool
	Policy    Policy
	Generator Generator
	OnFailure FailurePolicy
	MaxWords  int
}

// New picks the classifier for a run. Without summaries the local substring match is used.
func New(opts Options) Classifier {
	if opts.Policy == PolicyNone {
		return KeepAll{}
	}
	if !opts.Summarize {
		return Local{}
	}
	switch opts.Policy {
	case PolicyAnnotate:
		return Annotating{Inner: NewSummarizer(opts.Generator, opts.OnFailure, opts.MaxWords)}
	default:
		return NewSummarizer(opts.Generator, opts.OnFailure, opts.MaxWords)
	}
}
