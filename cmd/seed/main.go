// seed crea usuarios de demostración (uno por rol) y, opcionalmente, importa un catálogo de
// ítems desde CSV con columnas name,quantity,price[,category_id,unique_number].
// Los CSV exportados desde Excel suelen venir en Windows-1252; si el archivo no es UTF-8
// válido se decodifica con ese charset.
//
// Uso: go run ./cmd/seed [catalogo.csv]
// Contraseña de los usuarios: SEED_PASSWORD (por defecto "cambiar123").
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stockflow/internal/application/auth"
	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
	"github.com/jhoicas/stockflow/internal/infrastructure/postgres"
	"github.com/jhoicas/stockflow/pkg/config"
	"github.com/jhoicas/stockflow/pkg/logger"
)

var demoUsers = []struct {
	email string
	name  string
	role  entity.Role
}{
	{"admin@stockflow.local", "Administrador", entity.RoleAdmin},
	{"pm@stockflow.local", "Jefe de producto", entity.RoleProductManager},
	{"bodega@stockflow.local", "Bodeguero", entity.RoleStockKeeper},
	{"empleado@stockflow.local", "Empleado", entity.RoleEmployee},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "cambiar123"
	}
	repos := postgres.NewUnitOfWork(pool)
	adminID, err := seedUsers(ctx, repos.Users, password, log)
	if err != nil {
		log.Fatal().Err(err).Msg("usuarios de demostración")
	}

	if len(os.Args) < 2 {
		log.Info().Msg("sin catálogo: solo usuarios")
		return
	}
	rows, err := readCatalog(os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Str("file", os.Args[1]).Msg("leer catálogo")
	}
	uc := inventory.NewInventoryUseCase(postgres.NewTxRunner(pool, cfg.Workflow.LockTimeout()), repos)
	admin := entity.Actor{UserID: adminID, Role: entity.RoleAdmin}
	for _, item := range rows {
		if _, err := uc.RegisterItem(ctx, admin, item); err != nil {
			log.Fatal().Err(err).Str("item", item.Name).Msg("registrar ítem")
		}
	}
	log.Info().Int("items", len(rows)).Msg("catálogo importado")
}

// seedUsers crea los usuarios que no existan y devuelve el ID del admin.
func seedUsers(ctx context.Context, users repository.UserRepository, password string, log *logger.Logger) (string, error) {
	var adminID string
	for _, d := range demoUsers {
		existing, err := users.GetByEmail(ctx, d.email)
		if err != nil {
			return "", err
		}
		u := existing
		if u == nil {
			if u, err = auth.NewUser(d.email, password, d.name, d.role); err != nil {
				return "", err
			}
			if err := users.Create(ctx, u); err != nil {
				return "", err
			}
			log.Info().Str("email", d.email).Str("role", string(d.role)).Msg("usuario creado")
		}
		if d.role == entity.RoleAdmin {
			adminID = u.ID
		}
	}
	return adminID, nil
}

func readCatalog(path string) ([]*entity.StockItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r io.Reader = bytes.NewReader(raw)
	if !utf8.Valid(raw) {
		r = transform.NewReader(r, charmap.Windows1252.NewDecoder())
	}
	return parseCatalog(r)
}

func parseCatalog(r io.Reader) ([]*entity.StockItem, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []*entity.StockItem
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && strings.EqualFold(rec[0], "name") {
			continue
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("línea %d: se esperan al menos 3 columnas", i+1)
		}
		qty, err := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("línea %d: quantity: %w", i+1, err)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(rec[2]))
		if err != nil {
			return nil, fmt.Errorf("línea %d: price: %w", i+1, err)
		}
		item := &entity.StockItem{Name: strings.TrimSpace(rec[0]), Quantity: qty, Price: price}
		if len(rec) > 3 {
			item.CategoryID = strings.TrimSpace(rec[3])
		}
		if len(rec) > 4 {
			item.UniqueNumber = strings.TrimSpace(rec[4])
		}
		out = append(out, item)
	}
	return out, nil
}
