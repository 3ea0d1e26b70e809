package vm

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// ImageVersion is the format version written into every image.
const ImageVersion = 1

var (
	ErrImageVersion  = errors.New("unsupported image version")
	ErrImageGeometry = errors.New("image geometry is inconsistent")
)

var imageEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	imageEncMode = em
}

// Image is a snapshot of an assembled machine: the whole memory plus the
// boundaries needed to resume allocation. Registers are not part of an
// image; a restored machine starts from the bootstrap at the origin.
type Image struct {
	Version    int    `cbor:"1,keyasint"`
	ID         string `cbor:"2,keyasint"`
	WordCount  int    `cbor:"3,keyasint"`
	Origin     int    `cbor:"4,keyasint"`
	LabelCount int    `cbor:"5,keyasint"`
	LoMem      int    `cbor:"6,keyasint"`
	HiMem      int    `cbor:"7,keyasint"`
	VecFree    int    `cbor:"8,keyasint"`
	Words      []Word `cbor:"9,keyasint"`
}

// Snapshot captures the machine's memory image under a fresh id.
func (v *VM) Snapshot() *Image {
	return &Image{
		Version:    ImageVersion,
		ID:         uuid.New().String(),
		WordCount:  v.cfg.WordCount,
		Origin:     v.cfg.Origin,
		LabelCount: v.cfg.LabelCount,
		LoMem:      int(v.lomem),
		HiMem:      int(v.himem),
		VecFree:    int(v.vecfree),
		Words:      v.mem.Words(0, Addr(v.mem.Len())),
	}
}

func (img *Image) check() error {
	if img.Version != ImageVersion {
		return fmt.Errorf("%w: %d", ErrImageVersion, img.Version)
	}
	switch {
	case len(img.Words) != img.WordCount,
		img.LoMem < img.Origin,
		img.HiMem >= img.WordCount-img.LabelCount,
		img.VecFree < 0 || img.VecFree >= img.WordCount:
		return ErrImageGeometry
	}
	return nil
}

// NewFromImage creates a machine whose memory is a copy of img. The geometry
// of cfg is replaced by the image's; its streams and host are kept.
func NewFromImage(img *Image, cfg Config) (*VM, error) {
	if err := img.check(); err != nil {
		return nil, err
	}
	cfg.WordCount = img.WordCount
	cfg.Origin = img.Origin
	cfg.LabelCount = img.LabelCount
	v, err := New(cfg)
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", img.ID, err)
	}
	v.mem.Load(0, img.Words)
	v.lomem = Addr(img.LoMem)
	v.himem = Addr(img.HiMem)
	v.vecfree = Addr(img.VecFree)
	log.Infof("restored image %s (%d words of code)", img.ID, img.LoMem-img.Origin)
	return v, nil
}

// MarshalImage serializes img to canonical CBOR.
func MarshalImage(img *Image) ([]byte, error) {
	return imageEncMode.Marshal(img)
}

// UnmarshalImage deserializes and validates an image.
func UnmarshalImage(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("vm: unmarshal image: %w", err)
	}
	if err := img.check(); err != nil {
		return nil, err
	}
	return &img, nil
}
