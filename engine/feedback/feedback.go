// Package feedback samples the elevation under the viewer asynchronously. Each sample is a texel copy into a
// readback buffer tagged with a fence; samples are consumed strictly in issue order once their fence is ready,
// so the frame loop never waits on the device.
package feedback

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-planet/engine/renderer"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// readbackFloats is the layout of one readback: the raw texel, then the slot's two base offsets.
const readbackFloats = 3

// Request is one sample in flight.
type Request struct {
	Readback renderer.Buffer
	Slot     int
	Fence    renderer.Fence
}

// Sample is the data of one completed request.
type Sample struct {
	Slot int
	// Raw is the stored texel value, relative to the slot's base offsets.
	Raw   float64
	BaseU float64
	BaseV float64
}

// Elevation returns the absolute elevation of the sample.
func (s Sample) Elevation() float64 {
	return s.Raw + s.BaseU + s.BaseV
}

// Base returns the sum of the base offsets.
func (s Sample) Base() float64 {
	return s.BaseU + s.BaseV
}

// Pipeline is the bounded queue of height samples of one planet.
type Pipeline interface {
	// Drain consumes every request at the head of the queue whose fence is ready, stopping at the first
	// pending one.
	//
	// Returns:
	//   - []Sample: the consumed samples in issue order
	//   - error: an error if a readback fails
	Drain() ([]Sample, error)

	// Issue queues a copy of one texel and of its slot's base offsets, followed by a fence.
	//
	// Parameters:
	//   - image: the atlas image
	//   - offsets: the atlas base offset store
	//   - slot: the layer to sample
	//   - x, y: the stored texel to sample
	//
	// Returns:
	//   - bool: false when the queue is full and nothing was issued
	//   - error: an error if a copy or the fence cannot be issued
	Issue(image renderer.Image, offsets renderer.Buffer, slot, x, y int) (bool, error)

	// Len returns the number of requests in flight.
	Len() int

	// Full reports whether Issue would be refused.
	Full() bool
}

type pipeline struct {
	device  renderer.Device
	logger  *zap.SugaredLogger
	label   string
	queue   *CircularQueue[Request]
	buffers []renderer.Buffer
	issued  int
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a pipeline and its readback buffers.
//
// Parameters:
//   - device: the device the copies are issued on
//   - capacity: the maximum number of requests in flight
//   - options: builder options
//
// Returns:
//   - Pipeline: the pipeline
//   - error: an error if a readback buffer cannot be created
func NewPipeline(device renderer.Device, capacity int, options ...PipelineBuilderOption) (Pipeline, error) {
	if capacity < 1 {
		return nil, errors.Errorf("feedback capacity must be at least 1, got %d", capacity)
	}
	p := &pipeline{
		device: device,
		logger: zap.NewNop().Sugar(),
		label:  "Height Feedback",
		queue:  NewCircularQueue[Request](capacity),
	}
	for _, opt := range options {
		opt(p)
	}

	p.buffers = make([]renderer.Buffer, capacity)
	for i := range p.buffers {
		buf, err := device.CreateReadbackBuffer(fmt.Sprintf("%s %d", p.label, i), readbackFloats)
		if err != nil {
			return nil, err
		}
		p.buffers[i] = buf
	}
	return p, nil
}

func (p *pipeline) Drain() ([]Sample, error) {
	var samples []Sample
	for {
		head, ok := p.queue.Top()
		if !ok || !head.Fence.IsReady() {
			break
		}
		p.queue.Pop()

		values, err := p.device.ReadBuffer(head.Readback)
		if err != nil {
			return samples, errors.Wrapf(err, "reading back %q", head.Readback.Label())
		}
		if len(values) < readbackFloats {
			return samples, errors.Errorf("readback %q holds %d floats, need %d", head.Readback.Label(), len(values), readbackFloats)
		}
		samples = append(samples, Sample{
			Slot:  head.Slot,
			Raw:   float64(values[0]),
			BaseU: float64(values[1]),
			BaseV: float64(values[2]),
		})
	}
	if len(samples) > 0 {
		p.logger.Debugw("feedback drained", "samples", len(samples), "pending", p.queue.Len())
	}
	return samples, nil
}

func (p *pipeline) Issue(image renderer.Image, offsets renderer.Buffer, slot, x, y int) (bool, error) {
	if p.queue.Full() {
		return false, nil
	}

	// Requests leave in issue order, so the buffer of the oldest retired request is always the next one free.
	buf := p.buffers[p.issued%len(p.buffers)]
	if err := p.device.CopyTexel(image, slot, x, y, buf, 0); err != nil {
		return false, err
	}
	if err := p.device.CopyOffset(offsets, slot, buf, 1); err != nil {
		return false, err
	}
	fence, err := p.device.Fence(buf)
	if err != nil {
		return false, err
	}

	p.queue.Push(Request{Readback: buf, Slot: slot, Fence: fence})
	p.issued++
	return true, nil
}

func (p *pipeline) Len() int {
	return p.queue.Len()
}

func (p *pipeline) Full() bool {
	return p.queue.Full()
}
