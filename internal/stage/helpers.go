package stage

import (
	"echoai/internal/queue"
	"echoai/internal/services"
	"echoai/internal/storyboard"
)

// LoadStoryboard parses a job's storyboard envelope for use by stage Execute
// methods. On failure it returns a services.ErrValidation.
func LoadStoryboard(job *queue.Job) (storyboard.Envelope, error) {
	env, err := storyboard.Parse(job.StoryboardJSON)
	if err != nil {
		return storyboard.Envelope{}, services.Wrap(
			services.ErrValidation, "stage", "parse storyboard",
			"Storyboard missing or invalid; rerun the script stage", err)
	}
	return env, nil
}

// SaveStoryboard serializes the envelope back onto the job record.
func SaveStoryboard(job *queue.Job, env storyboard.Envelope) error {
	raw, err := env.Encode()
	if err != nil {
		return services.Wrap(
			services.ErrValidation, "stage", "encode storyboard",
			"Unable to serialize storyboard state", err)
	}
	job.StoryboardJSON = raw
	return nil
}
