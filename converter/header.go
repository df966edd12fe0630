package converter

import "ndpi2dzi/contracts"

// ReadHeader asks b for the header of path, falling back to a full open.
func ReadHeader(b contracts.ImageIO, path string) (contracts.Header, error) {
	if hr, ok := b.(contracts.HeaderReader); ok {
		return hr.Header(path)
	}
	img, err := b.Open(path)
	if err != nil {
		return contracts.Header{}, err
	}
	defer img.Close()
	return contracts.Header{Width: img.Width(), Height: img.Height()}, nil
}
