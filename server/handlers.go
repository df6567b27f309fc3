package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/optimode/verifykit"
	"github.com/optimode/verifykit/internal/input"
	"github.com/optimode/verifykit/types"
)

type verifyRequest struct {
	Address string `json:"address"`
}

type batchRequest struct {
	Addresses []string `json:"addresses"`
}

// handleVerifyOne verifies a single address synchronously. One address
// means at most a handful of SMTP probes, so the caller just waits.
func (s *Server) handleVerifyOne(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Address == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "address is required",
		})
	}

	verdict := s.verifier.VerifyOne(c.UserContext(), req.Address)
	return c.JSON(verdict)
}

// handleVerifyBatch accepts a JSON address list and starts a background job.
func (s *Server) handleVerifyBatch(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	return s.startJob(c, req.Addresses)
}

// handleUpload accepts a multipart TXT/CSV file, extracts the addresses
// and starts a background job.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cannot read uploaded file",
		})
	}
	defer f.Close()

	addresses, err := input.ParseAddressList(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cannot parse uploaded file",
		})
	}

	return s.startJob(c, addresses)
}

// startJob validates batch bounds, registers a job and runs it in the
// background. Responds 202 with the job id.
func (s *Server) startJob(c *fiber.Ctx, addresses []string) error {
	if len(addresses) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "no addresses to verify",
		})
	}
	if len(addresses) > verifykit.MaxBatchSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "batch exceeds the 50000 address limit",
		})
	}

	job := s.jobs.create(len(addresses))
	s.log.WithFields(logrus.Fields{
		"job":   job.ID,
		"total": len(addresses),
	}).Info("verification job started")

	go s.runJob(job, addresses)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"jobId": job.ID,
		"total": len(addresses),
	})
}

// runJob drives one batch to completion and mirrors the pipeline callbacks
// into the job's progress stream.
func (s *Server) runJob(job *Job, addresses []string) {
	res, err := s.verifier.VerifyBatch(context.Background(), addresses,
		func(completed, total int, v types.Verdict) {
			job.progress(completed, total, v)
		},
		func(statistics types.Statistics) {
			job.stats(statistics)
		})
	if err != nil {
		s.log.WithField("job", job.ID).WithError(err).Error("verification job failed")
		job.fail(err)
		return
	}

	job.complete(res.Results, res.Statistics)
	s.log.WithFields(logrus.Fields{
		"job":     job.ID,
		"total":   res.Statistics.Total,
		"valid":   res.Statistics.Valid,
		"invalid": res.Statistics.Invalid,
	}).Info("verification job completed")
}

// handleGetJob returns the current job snapshot. Results are included once
// the job has completed.
func (s *Server) handleGetJob(c *fiber.Ctx) error {
	job, ok := s.jobs.get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "job not found",
		})
	}
	return c.JSON(job.View())
}

// handleJobWS streams job progress events over a websocket. The current
// snapshot is sent first so late subscribers catch up, then live events
// until the job finishes or the client goes away.
func (s *Server) handleJobWS(c *websocket.Conn) {
	defer c.Close()

	job, ok := s.jobs.get(c.Params("id"))
	if !ok {
		_ = c.WriteJSON(fiber.Map{"error": "job not found"})
		return
	}

	events, cancel := job.Subscribe()
	defer cancel()

	view := job.View()
	if err := c.WriteJSON(view); err != nil {
		return
	}
	if view.Status != JobRunning {
		return
	}

	for ev := range events {
		if err := c.WriteJSON(ev); err != nil {
			return
		}
		if ev.Type == "done" || ev.Type == "failed" {
			return
		}
	}
}
