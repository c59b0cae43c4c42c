package ai

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"detectboard/internal/config"
	"detectboard/internal/logger"
	"detectboard/internal/model"
	"detectboard/internal/service/ai/decode"

	"gocv.io/x/gocv"
)

// Supported network output layouts.
const (
	FormatYOLOv5 = "yolov5"
	FormatSSD    = "ssd"
)

// ssdInputSize is the input resolution of MobileNet-SSD COCO graphs.
const ssdInputSize = 300

var boxPalette = []color.RGBA{
	{R: 255, G: 56, B: 56},
	{R: 255, G: 157, B: 151},
	{R: 255, G: 112, B: 31},
	{R: 255, G: 178, B: 29},
	{R: 207, G: 210, B: 49},
	{R: 72, G: 249, B: 10},
	{R: 146, G: 204, B: 23},
	{R: 61, G: 219, B: 134},
	{R: 26, G: 147, B: 52},
	{R: 0, G: 212, B: 187},
}

// DetectorService wraps one OpenCV DNN network. A network is not safe for
// concurrent use, so callers keep one DetectorService per worker.
type DetectorService struct {
	net        gocv.Net
	format     string
	inputSize  int
	labels     model.LabelTable
	modelPath  string
	configPath string
	logger     *logger.Logger
	mu         sync.Mutex
}

// NewDetectorService loads the network described by the configuration.
// Missing or incompatible artifacts are reported as model.ErrSetup.
func NewDetectorService(cfg *config.Config, labels model.LabelTable, logger *logger.Logger) (*DetectorService, error) {
	service := &DetectorService{
		format:     cfg.ModelFormat,
		inputSize:  cfg.InputSize,
		labels:     labels,
		modelPath:  cfg.ModelPath,
		configPath: cfg.ConfigPath,
		logger:     logger,
	}

	if service.format != FormatYOLOv5 && service.format != FormatSSD {
		return nil, fmt.Errorf("%w: unsupported model format %q", model.ErrSetup, service.format)
	}
	if service.format == FormatSSD {
		service.inputSize = ssdInputSize
	}
	if service.inputSize <= 0 {
		return nil, fmt.Errorf("%w: invalid input size %d", model.ErrSetup, service.inputSize)
	}

	if err := service.initializeNet(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSetup, err)
	}

	return service, nil
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	if s.configPath != "" {
		if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", s.configPath)
		}
	}

	net := gocv.ReadNet(s.modelPath, s.configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", s.modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.logger.Info("Detection network initialized (%s, %s)", s.format, s.modelPath)
	return nil
}

// Labels returns the label table the network was loaded with.
func (s *DetectorService) Labels() model.LabelTable {
	return s.labels
}

// Detect decodes the image, runs the network with the given parameters and
// returns the surviving detections together with an annotated JPEG.
func (s *DetectorService) Detect(imageBytes []byte, params model.DetectionParams) (*model.DetectionBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", model.ErrInference, err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("%w: decoded image is empty", model.ErrInference)
	}

	raw, err := s.forward(mat, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInference, err)
	}

	detections := decode.Apply(raw, params)
	s.logger.Info("Detected %d objects (%d candidates before NMS)", len(detections), len(raw))

	annotated, err := s.render(detections, &mat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInference, err)
	}

	return &model.DetectionBatch{
		Detections: detections,
		Width:      mat.Cols(),
		Height:     mat.Rows(),
		Annotated:  annotated,
	}, nil
}

// forward runs the network and decodes its output tensor.
func (s *DetectorService) forward(mat gocv.Mat, params model.DetectionParams) ([]model.Detection, error) {
	var blob gocv.Mat
	switch s.format {
	case FormatSSD:
		// Parametry zgodne z siecią ssd coco
		blob = gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(s.inputSize, s.inputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	default:
		blob = gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(s.inputSize, s.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	}
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	if output.Empty() {
		return nil, fmt.Errorf("network returned an empty output")
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %v", err)
	}

	frame := decode.Frame{
		Width:       mat.Cols(),
		Height:      mat.Rows(),
		InputWidth:  s.inputSize,
		InputHeight: s.inputSize,
	}

	if s.format == FormatSSD {
		return decode.DecodeSSD(data, frame, params)
	}

	numClasses := len(s.labels)
	if dims := output.Size(); len(dims) == 3 && dims[2] > 5 {
		numClasses = dims[2] - 5
	}
	return decode.DecodeYOLOv5(data, numClasses, frame, params)
}

// render draws detections on the image and returns a re-encoded JPEG buffer.
func (s *DetectorService) render(detections []model.Detection, mat *gocv.Mat) ([]byte, error) {
	for _, detection := range detections {
		c := boxPalette[detection.ClassID%len(boxPalette)]
		rect := image.Rect(int(detection.Box.Left), int(detection.Box.Top), int(detection.Box.Right), int(detection.Box.Bottom))
		if err := gocv.Rectangle(mat, rect, c, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %v", err)
		}

		label, ok := s.labels.Lookup(detection.ClassID)
		if !ok {
			label = fmt.Sprintf("class %d", detection.ClassID)
		}
		caption := fmt.Sprintf("%s (%.2f)", label, detection.Confidence)
		pt := image.Pt(rect.Min.X, max(rect.Min.Y-5, 12))
		if err := gocv.PutText(mat, caption, pt, gocv.FontHersheySimplex, 0.5, c, 1); err != nil {
			return nil, fmt.Errorf("failed to draw text: %v", err)
		}
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
	if err != nil {
		s.logger.Error("Failed to encode image: %v", err)
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	defer buf.Close()

	finalImage := make([]byte, len(buf.GetBytes()))
	copy(finalImage, buf.GetBytes())
	return finalImage, nil
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Close()
}
