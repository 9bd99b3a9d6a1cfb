package bootstrap

import (
	"context"
	"fmt"

	appconfig "github.com/wolfman30/clinic-reservation/internal/config"
	"github.com/wolfman30/clinic-reservation/internal/departments"
	"github.com/wolfman30/clinic-reservation/internal/doctors"
	"github.com/wolfman30/clinic-reservation/internal/scheduling"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

type demoDoctor struct {
	name           string
	specialization string
}

var demoCatalog = []struct {
	department string
	doctors    []demoDoctor
}{
	{"Internal Medicine", []demoDoctor{{"Dr. Haruto Sato", "General internal medicine"}, {"Dr. Emi Tanaka", "Cardiology"}}},
	{"Pediatrics", []demoDoctor{{"Dr. Yui Suzuki", "Pediatrics"}}},
	{"Dermatology", []demoDoctor{{"Dr. Ren Takahashi", "Dermatology"}}},
}

// SeedDemo fills empty in-memory stores with departments, doctors and the
// configured slot horizon. It is a no-op once any department exists.
func SeedDemo(ctx context.Context, cfg *appconfig.Config, api *API, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Default()
	}
	existing, err := api.Departments.List(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: seed: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, entry := range demoCatalog {
		dept, err := api.Departments.Create(ctx, departments.CreateRequest{Name: entry.department})
		if err != nil {
			return fmt.Errorf("bootstrap: seed department %s: %w", entry.department, err)
		}
		for _, d := range entry.doctors {
			if _, err := api.Doctors.Create(ctx, doctors.CreateRequest{
				Name:           d.name,
				DepartmentID:   dept.ID,
				Specialization: d.specialization,
			}); err != nil {
				return fmt.Errorf("bootstrap: seed doctor %s: %w", d.name, err)
			}
		}
	}

	gen := scheduling.NewSlotGenerator(api.Doctors, api.TimeSlots, SlotConfig(cfg), cfg.Location(), logger)
	created, err := gen.Run(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: seed slots: %w", err)
	}
	logger.Info("demo data seeded", "departments", len(demoCatalog), "slots", created)
	return nil
}

// SlotConfig maps the SLOT_* settings onto the generator.
func SlotConfig(cfg *appconfig.Config) scheduling.SlotConfig {
	return scheduling.SlotConfig{
		DayStart:    cfg.SlotDayStart,
		DayEnd:      cfg.SlotDayEnd,
		SlotMinutes: cfg.SlotMinutes,
		HorizonDays: cfg.SlotHorizonDays,
	}
}
