package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-agenda/internal/agenda"
	"github.com/hackgods/clinic-agenda/internal/appointment"
	"github.com/hackgods/clinic-agenda/internal/calendar"
	"github.com/hackgods/clinic-agenda/internal/catalog"
	"github.com/hackgods/clinic-agenda/internal/config"
	"github.com/hackgods/clinic-agenda/internal/db"
	"github.com/hackgods/clinic-agenda/internal/logger"
)

var specialties = []string{
	"Psicología Clínica",
	"Terapia Familiar",
	"Neuropsicología",
	"Psicología Infantil",
	"Terapia Cognitivo-Conductual",
	"Psicología de Pareja",
}

var taskTemplates = []struct {
	kind agenda.TaskType
	text string
}{
	{agenda.TaskClinical, "Revisar notas de sesión de %s"},
	{agenda.TaskAdministrative, "Actualizar datos de facturación de %s"},
	{agenda.TaskFollowUp, "Llamar a %s para seguimiento"},
	{agenda.TaskEvaluation, "Corregir batería de evaluación de %s"},
}

type person struct {
	id   string
	name string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("seed", "info", true, "")
		bootLog.Fatal().Err(err).Msg("config load error")
	}
	log := logger.New("seed", cfg.LogLevel, true, "")
	log.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, db.Options{DSN: cfg.PostgresDSN, AppName: "clinic-agenda-seed"})
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if _, err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	faker := gofakeit.New(0)

	psychologists, err := seedPsychologists(ctx, pool, faker, getInt("SEED_PSYCHOLOGISTS", 6), log)
	if err != nil {
		log.Fatal().Err(err).Msg("seed psychologists")
	}
	patients, err := seedPatients(ctx, pool, faker, getInt("SEED_PATIENTS", 300), log)
	if err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}

	days := getInt("SEED_DAYS", 5)
	today := calendar.StartOfDay(time.Now().In(cfg.Location))
	if err := seedAgenda(ctx, pool, faker, cfg.Location, today, days, psychologists, patients, log); err != nil {
		log.Fatal().Err(err).Msg("seed agenda")
	}

	log.Info().Msg("seed complete")
}

func seedPsychologists(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int, log zerolog.Logger) ([]person, error) {
	log.Info().Int("count", count).Msg("seeding psychologists")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	out := make([]person, 0, count)
	for i := 0; i < count; i++ {
		p := person{id: uuid.NewString(), name: "Dr. " + faker.Name()}
		_, err := tx.Exec(ctx, `
			INSERT INTO psychologists (id, name, specialty, created_at)
			VALUES ($1, $2, $3, now())
		`, p.id, p.name, faker.RandomString(specialties))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int, log zerolog.Logger) ([]person, error) {
	log.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	out := make([]person, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			p := person{id: uuid.NewString(), name: faker.Name()}
			phone, err := mobileNumber(faker)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, phone, created_at)
				VALUES ($1, $2, $3, $4, now())
			`, p.id, p.name, faker.Email(), phone)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			out = append(out, p)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		log.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}
	return out, nil
}

// seedAgenda books hourly sessions without double bookings and adds a few
// tasks per day. It goes through the repositories so rows match what the
// API writes.
func seedAgenda(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, loc *time.Location, from time.Time, days int, psychologists, patients []person, log zerolog.Logger) error {
	repo := appointment.NewPgRepository(pool)
	store := agenda.NewPgStore(pool)

	var rooms []catalog.Room
	for _, r := range catalog.Default().Rooms() {
		if r.Available {
			rooms = append(rooms, r)
		}
	}

	booked := 0
	for d := 0; d < days; d++ {
		day := from.AddDate(0, 0, d)
		date := calendar.FormatDateToString(day)

		for hour := appointment.FirstStartHour; hour < appointment.LastStartHour; hour++ {
			busy := map[string]bool{}
			for _, room := range rooms {
				if !faker.Bool() {
					continue
				}
				psych, ok := pickFree(faker, psychologists, busy)
				if !ok {
					break
				}
				busy[psych.id] = true

				a := appointment.Appointment{
					ID:             uuid.NewString(),
					PatientID:      patients[faker.Number(0, len(patients)-1)].id,
					PsychologistID: psych.id,
					Date:           date,
					Time:           fmt.Sprintf("%02d:00", hour),
					Duration:       faker.RandomInt([]int{45, 60}),
					Type:           appointment.TypeInPerson,
					Status:         appointment.StatusScheduled,
					Priority:       appointment.Priority(faker.RandomString([]string{"low", "medium", "high"})),
					RoomID:         room.ID,
				}
				if faker.Number(1, 5) == 1 {
					a.Type = appointment.TypeVirtual
					a.RoomID = ""
					a.VirtualLink = "https://meet.example.com/" + faker.LetterN(10)
				}
				if d == 0 && faker.Bool() {
					a.Status = appointment.StatusConfirmed
				}
				if _, err := repo.CreateAppointment(ctx, a); err != nil {
					return fmt.Errorf("create appointment: %w", err)
				}
				booked++
			}
		}

		for i := 0; i < 4; i++ {
			tpl := taskTemplates[faker.Number(0, len(taskTemplates)-1)]
			patient := patients[faker.Number(0, len(patients)-1)]
			_, err := store.CreateTask(ctx, day, agenda.Task{
				ID:                uuid.NewString(),
				Description:       fmt.Sprintf(tpl.text, patient.name),
				Type:              tpl.kind,
				Priority:          appointment.PriorityMedium,
				DueTime:           fmt.Sprintf("%02d:30", faker.Number(9, 17)),
				AssignedTo:        psychologists[faker.Number(0, len(psychologists)-1)].id,
				RelatedPatient:    patient.id,
				EstimatedDuration: faker.RandomInt([]int{10, 15, 30}),
			})
			if err != nil {
				return fmt.Errorf("create task: %w", err)
			}
		}
	}

	log.Info().Int("appointments", booked).Int("days", days).Msg("agenda seeded")
	return nil
}

func pickFree(faker *gofakeit.Faker, psychologists []person, busy map[string]bool) (person, bool) {
	start := faker.Number(0, len(psychologists)-1)
	for i := range psychologists {
		p := psychologists[(start+i)%len(psychologists)]
		if !busy[p.id] {
			return p, true
		}
	}
	return person{}, false
}

// mobileNumber returns a random Venezuelan mobile number in E.164 form.
func mobileNumber(faker *gofakeit.Faker) (string, error) {
	local := fmt.Sprintf("%s%07d", faker.RandomString([]string{"0412", "0414", "0416", "0424", "0426"}), faker.Number(0, 9999999))
	num, err := phonenumbers.Parse(local, "VE")
	if err != nil {
		return "", fmt.Errorf("parse phone %s: %w", local, err)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
