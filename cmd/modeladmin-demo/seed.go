// ABOUTME: Fixture loader for the demo admin
// ABOUTME: Reads teachers, students, and courses from a TOML file and saves them

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"github.com/2389/modeladmin/datastore"
	"github.com/2389/modeladmin/internal/config"
)

type seedFile struct {
	Teachers []seedTeacher `toml:"teacher"`
	Students []seedStudent `toml:"student"`
	Courses  []seedCourse  `toml:"course"`
}

type seedTeacher struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
	Bio   string `toml:"bio"`
}

type seedStudent struct {
	Name     string    `toml:"name"`
	Email    string    `toml:"email"`
	Birthday time.Time `toml:"birthday"`
}

// seedCourse names its teacher and students; keys are resolved after
// those rows are saved.
type seedCourse struct {
	Subject  string    `toml:"subject"`
	Fee      string    `toml:"fee"`
	Seats    int64     `toml:"seats"`
	Active   bool      `toml:"active"`
	StartsAt time.Time `toml:"starts_at"`
	Teacher  string    `toml:"teacher"`
	Students []string  `toml:"students"`
}

func runSeed(ctx context.Context) error {
	fixturePath := "seed.toml"
	if len(os.Args) > 2 {
		fixturePath = os.Args[2]
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Database.Driver == config.DriverMemory {
		return errors.New("the memory driver starts empty on every boot; seed a persistent driver instead")
	}

	var fixtures seedFile
	if _, err := toml.DecodeFile(fixturePath, &fixtures); err != nil {
		return fmt.Errorf("reading fixtures: %w", err)
	}

	store, _, err := openStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	if initer, ok := store.(schemaIniter); ok {
		if err := initer.InitSchema(ctx); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}

	teacherKeys := make(map[string]string)
	for _, st := range fixtures.Teachers {
		key, err := saveSeed(ctx, store, "Teacher", &Teacher{
			Name:  st.Name,
			Email: st.Email,
			Bio:   st.Bio,
		})
		if err != nil {
			return fmt.Errorf("seeding teacher %q: %w", st.Name, err)
		}
		teacherKeys[st.Name] = key
	}

	studentKeys := make(map[string]string)
	for _, ss := range fixtures.Students {
		key, err := saveSeed(ctx, store, "Student", &Student{
			Name:     ss.Name,
			Email:    ss.Email,
			Birthday: ss.Birthday,
		})
		if err != nil {
			return fmt.Errorf("seeding student %q: %w", ss.Name, err)
		}
		studentKeys[ss.Name] = key
	}

	for _, sc := range fixtures.Courses {
		course := &Course{
			Subject:  sc.Subject,
			Seats:    sc.Seats,
			Active:   sc.Active,
			StartsAt: sc.StartsAt,
		}

		if sc.Fee != "" {
			fee, err := decimal.NewFromString(sc.Fee)
			if err != nil {
				return fmt.Errorf("course %q: bad fee %q: %w", sc.Subject, sc.Fee, err)
			}
			course.Fee = fee
		}

		if sc.Teacher != "" {
			key, ok := teacherKeys[sc.Teacher]
			if !ok {
				return fmt.Errorf("course %q: unknown teacher %q", sc.Subject, sc.Teacher)
			}
			course.TeacherID = key
		}

		for _, name := range sc.Students {
			key, ok := studentKeys[name]
			if !ok {
				return fmt.Errorf("course %q: unknown student %q", sc.Subject, name)
			}
			course.Students = append(course.Students, key)
		}

		if _, err := saveSeed(ctx, store, "Course", course); err != nil {
			return fmt.Errorf("seeding course %q: %w", sc.Subject, err)
		}
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Seeded %d teachers, %d students, %d courses from %s\n",
		len(fixtures.Teachers), len(fixtures.Students), len(fixtures.Courses), fixturePath)
	return nil
}

// saveSeed wraps a model struct, saves it, and returns the assigned key.
func saveSeed(ctx context.Context, store datastore.Datastore, modelName string, v any) (string, error) {
	model, ok := store.Registry().Lookup(modelName)
	if !ok {
		return "", fmt.Errorf("model %s is not registered", modelName)
	}

	inst, err := model.Wrap(v)
	if err != nil {
		return "", err
	}
	if err := store.Save(ctx, modelName, inst); err != nil {
		return "", err
	}
	return inst.Key(), nil
}
