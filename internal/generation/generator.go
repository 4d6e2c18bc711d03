package generation

import (
	"context"
	"io"
	"time"

	"github.com/phrazzld/scry-chat/internal/domain"
)

// Message is one entry of the ordered message list sent to an inference service.
type Message struct {
	Role    domain.Role
	Content string
}

// Generator produces the next assistant message for a conversation.
// Implementations must be safe for concurrent use by multiple workers.
type Generator interface {
	// Generate sends the ordered messages to the given model and returns its reply.
	// Failures are wrapped with ErrExternalService or one of the more specific errors.
	Generate(ctx context.Context, model string, messages []Message) (string, error)
}

// ImageRequest carries the prompt and sampling parameters for one image.
type ImageRequest struct {
	Prompt         string
	NegativePrompt string
	Seed           int
	RandomizeSeed  bool
	Width          int
	Height         int
	GuidanceScale  float64
	Steps          int
}

// ImageParams are the fixed sampling parameters applied to every image request.
type ImageParams struct {
	NegativePrompt string
	Seed           int
	RandomizeSeed  bool
	Width          int
	Height         int
	GuidanceScale  float64
	Steps          int
}

// DefaultNegativePrompt steers the image model away from non-photographic output.
const DefaultNegativePrompt = "text, watermark, signature, cartoon, anime, illustration, painting, drawing, low quality, blurry"

// DefaultImageParams returns the sampling parameters used when none are configured.
func DefaultImageParams() ImageParams {
	return ImageParams{
		NegativePrompt: DefaultNegativePrompt,
		Seed:           0,
		RandomizeSeed:  true,
		Width:          512,
		Height:         512,
		GuidanceScale:  4,
		Steps:          28,
	}
}

// Request builds an ImageRequest for prompt using these parameters.
func (p ImageParams) Request(prompt string) ImageRequest {
	return ImageRequest{
		Prompt:         prompt,
		NegativePrompt: p.NegativePrompt,
		Seed:           p.Seed,
		RandomizeSeed:  p.RandomizeSeed,
		Width:          p.Width,
		Height:         p.Height,
		GuidanceScale:  p.GuidanceScale,
		Steps:          p.Steps,
	}
}

// ImageGenerator renders an image for a prompt.
type ImageGenerator interface {
	// GenerateImage returns the path of a temporary file holding the image.
	// The caller owns the file and is expected to hand it to an ImageStore.
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}

// ImageStore keeps generated images and serves them back by reference.
type ImageStore interface {
	// Save moves the temporary file at tempPath into the store under name and
	// returns the stable reference to record in the conversation.
	Save(ctx context.Context, tempPath, name string) (string, error)

	// Open returns the stored image for ref.
	Open(ref string) (io.ReadSeekCloser, time.Time, error)
}
