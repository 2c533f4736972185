package scanning

// Vertex is one corner of a word bounding box, in pixel units.
type Vertex struct {
	X int
	Y int
}

// WordBox is a single OCR-detected word with its bounding quadrilateral.
// Corners are ordered clockwise starting from the top-left.
type WordBox struct {
	Text string
	Box  [4]Vertex
}

// Oracle defines the interface for word-level text detection services.
type Oracle interface {
	// DetectText runs text detection on an image and returns word boxes.
	// By convention the first element is the full-text blob covering the
	// whole image; the remaining elements are individual words.
	DetectText(imageData []byte, contentType string) ([]WordBox, error)
	// Close closes the oracle and releases resources
	Close() error
}
