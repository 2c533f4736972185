package scanning

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// Vision implements the Oracle interface using the Google Cloud Vision API
type Vision struct {
	service *vision.Service
}

// NewVision creates a new Vision Oracle instance authenticated with a
// service-account key file
func NewVision(keyFile string) (*Vision, error) {
	if keyFile == "" {
		return nil, fmt.Errorf("vision key file is required")
	}

	ctx := context.Background()
	service, err := vision.NewService(ctx, option.WithCredentialsFile(keyFile))
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}

	return &Vision{service: service}, nil
}

// DetectText runs TEXT_DETECTION on an image and maps the annotations to
// word boxes. The image is normalized to PNG first so PDF and HEIC receipts
// work the same as phone photos.
func (v *Vision) DetectText(imageData []byte, contentType string) ([]WordBox, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	finalImageData, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(finalImageData)},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}

	resp, err := v.service.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("annotating image: %w", err)
	}

	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("no response from vision api")
	}
	annotation := resp.Responses[0]
	if annotation.Error != nil {
		return nil, fmt.Errorf("vision api error: %s", annotation.Error.Message)
	}

	boxes := make([]WordBox, 0, len(annotation.TextAnnotations))
	for _, ta := range annotation.TextAnnotations {
		box := WordBox{Text: ta.Description}
		if ta.BoundingPoly != nil {
			for i, vtx := range ta.BoundingPoly.Vertices {
				if i >= 4 {
					break
				}
				box.Box[i] = Vertex{X: int(vtx.X), Y: int(vtx.Y)}
			}
		}
		boxes = append(boxes, box)
	}

	return boxes, nil
}

// Close closes the oracle. The vision client holds no long-lived resources.
func (v *Vision) Close() error {
	return nil
}
