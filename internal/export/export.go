// Package export writes reservation reports to S3.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-reservation/internal/reservations"
	"github.com/wolfman30/clinic-reservation/internal/timeslots"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

var (
	ErrNotConfigured = errors.New("export: no bucket configured")
	ErrInvalidRange  = errors.New("export: invalid date range")
)

// S3API is the subset of the S3 client used by Exporter.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Source finds the reservations to export. A zero limit returns every match.
type Source interface {
	Search(ctx context.Context, filter reservations.Filter) ([]*reservations.Reservation, int, error)
}

// Result describes a written report.
type Result struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

var header = []string{
	"reservationId", "timeSlotId", "userId", "userEmail", "doctorId", "departmentId",
	"date", "startTime", "endTime", "status", "name", "phoneNumber", "createdAt", "updatedAt",
}

// Exporter writes CSV reports of reservations to a bucket.
type Exporter struct {
	source   Source
	s3Client S3API
	bucket   string
	newID    func() uuid.UUID
	logger   *logging.Logger
}

// NewExporter creates an Exporter. With an empty bucket every export fails
// with ErrNotConfigured.
func NewExporter(source Source, s3Client S3API, bucket string, logger *logging.Logger) *Exporter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Exporter{source: source, s3Client: s3Client, bucket: bucket, newID: uuid.New, logger: logger}
}

// Enabled reports whether a bucket and client are configured.
func (e *Exporter) Enabled() bool {
	return e != nil && e.bucket != "" && e.s3Client != nil
}

// Export writes every reservation dated from..to inclusive and returns the
// object key.
func (e *Exporter) Export(ctx context.Context, from, to string) (*Result, error) {
	if !e.Enabled() {
		return nil, ErrNotConfigured
	}
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	rows, _, err := e.source.Search(ctx, reservations.Filter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("export: search: %w", err)
	}

	body, err := encodeCSV(rows)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("exports/reservations/%s_%s_%s.csv", from, to, e.newID())
	_, err = e.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return nil, fmt.Errorf("export: s3 put %s: %w", key, err)
	}

	e.logger.Info("reservations exported", "s3_key", key, "count", len(rows), "from", from, "to", to)
	return &Result{Key: key, Count: len(rows)}, nil
}

func validateRange(from, to string) error {
	if from == "" || to == "" {
		return fmt.Errorf("%w: from and to are required", ErrInvalidRange)
	}
	f, err := timeslots.ParseDate(from)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	t, err := timeslots.ParseDate(to)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if f.After(t) {
		return fmt.Errorf("%w: from is after to", ErrInvalidRange)
	}
	return nil
}

func encodeCSV(rows []*reservations.Reservation) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("export: write header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.TimeSlotID, 10),
			strconv.FormatInt(r.UserID, 10),
			r.UserEmail,
			strconv.FormatInt(r.DoctorID, 10),
			strconv.FormatInt(r.DepartmentID, 10),
			r.Date,
			r.StartTime,
			r.EndTime,
			string(r.Status),
			r.Name,
			r.PhoneNumber,
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("export: write row %d: %w", r.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: flush: %w", err)
	}
	return buf.Bytes(), nil
}
