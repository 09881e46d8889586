package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bedfinder/backend/internal/adapters/database"
	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/infrastructure/clients/postgres"
	"github.com/bedfinder/backend/internal/infrastructure/observability"
	"github.com/bedfinder/backend/pkg/config"
	apperrors "github.com/bedfinder/backend/pkg/errors"
)

type seedHospital struct {
	name, address, phone string
	lat, lng             float64
	facilityType         entities.FacilityType
	beds                 entities.BedInventory
	responseTimeAvg      int
}

func beds(generalAv, generalTotal, oxygenAv, oxygenTotal, icuAv, icuTotal int) entities.BedInventory {
	return entities.BedInventory{
		General: entities.BedCount{Total: generalTotal, Available: generalAv},
		Oxygen:  entities.BedCount{Total: oxygenTotal, Available: oxygenAv},
		ICU:     entities.BedCount{Total: icuTotal, Available: icuAv},
	}
}

var hospitals = []seedHospital{
	{"Apex Multispeciality Hospital", "Borivali West, Mumbai", "022 2890 1234", 19.2297, 72.8433, entities.FacilityTypePrivate, beds(15, 50, 8, 20, 4, 10), 12},
	{"Holy Family Hospital", "Bandra West, Mumbai", "022 2642 3282", 19.0544, 72.8294, entities.FacilityTypePrivate, beds(25, 100, 12, 30, 6, 15), 10},
	{"AIIMS Delhi", "Ansari Nagar, New Delhi", "011 2658 8500", 28.5672, 77.2100, entities.FacilityTypeGovernment, beds(0, 500, 5, 200, 0, 100), 20},
	{"Manipal Hospital", "Old Airport Road, Bangalore", "080 2502 4444", 12.9592, 77.6450, entities.FacilityTypePrivate, beds(10, 150, 20, 50, 5, 20), 15},
	{"Fortis Hospital", "Mulund West, Mumbai", "022 4111 4111", 19.1764, 72.9515, entities.FacilityTypePrivate, beds(12, 80, 10, 25, 2, 10), 14},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("bedfinder-seed", cfg.Environment)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				favorites,
				future_requests,
				emergency_requests,
				bookings,
				hospitals
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to reset tables")
		}
	}

	repo := database.NewFacilityAdapter(pgClient)

	created, skipped := 0, 0
	for _, h := range hospitals {
		phone := h.phone
		responseTime := h.responseTimeAvg
		facility := &entities.Facility{
			ID:              uuid.New().String(),
			Name:            h.name,
			Address:         h.address,
			Location:        entities.Location{Latitude: h.lat, Longitude: h.lng},
			Type:            h.facilityType,
			Phone:           &phone,
			Beds:            h.beds,
			Verified:        true,
			ResponseTimeAvg: &responseTime,
		}

		if err := repo.Create(ctx, facility); err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
				skipped++
				continue
			}
			log.Error().Err(err).Str("hospital", h.name).Msg("failed to create hospital")
			continue
		}
		created++
	}

	log.Info().Int("created", created).Int("skipped", skipped).Msg("seeding complete")
}
