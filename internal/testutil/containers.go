package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/localnerve/assemblydb/data"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	dbAlias    = "assemblydb-db"
	authzAlias = "authorizer"
	appImage   = "assemblydb-test:latest"
)

// Containers is a running MariaDB, Authorizer and assemblydb stack. Any
// member may be nil when it was not requested or failed to start.
type Containers struct {
	Network    *testcontainers.DockerNetwork
	DB         testcontainers.Container
	Authorizer testcontainers.Container
	App        testcontainers.Container
	Builder    testcontainers.Container

	// DBHost and DBPort are reachable from the test process
	DBHost string
	DBPort string
}

// Terminate stops every started container in reverse order
func (tc *Containers) Terminate(t testing.TB) {
	ctx := context.Background()
	for _, c := range []struct {
		name      string
		container testcontainers.Container
	}{
		{"assemblydb", tc.App},
		{"assemblydb builder", tc.Builder},
		{"Authorizer", tc.Authorizer},
		{"MariaDB", tc.DB},
	} {
		if c.container == nil {
			continue
		}
		if err := c.container.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate %s: %v", c.name, err)
		}
	}
	if tc.Network != nil {
		if err := tc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// StartDatabase starts MariaDB with the application database, both accounts
// and their privileges.
func StartDatabase(ctx context.Context, t testing.TB) (*Containers, error) {
	tc := &Containers{}

	nw, err := network.New(ctx)
	if err != nil {
		return tc, fmt.Errorf("failed to create network: %w", err)
	}
	tc.Network = nw

	tcpDBPort, err := nat.NewPort("tcp", env("DB_PORT", "3306"))
	if err != nil {
		return tc, fmt.Errorf("failed to create DB port: %w", err)
	}
	db, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        env("DB_IMAGE", "mariadb:11"),
			ExposedPorts: []string{string(tcpDBPort)},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": env("DB_ROOT_PASSWORD", "root"),
				"MYSQL_DATABASE":      env("DB_DATABASE", "assembly"),
			},
			WaitingFor: wait.ForListeningPort(tcpDBPort).WithStartupTimeout(60 * time.Second),
			Networks:   []string{nw.Name},
			NetworkAliases: map[string][]string{
				nw.Name: {dbAlias},
			},
		},
		Started: true,
	})
	if err != nil {
		return tc, fmt.Errorf("failed to start MariaDB: %w", err)
	}
	tc.DB = db

	host, err := db.Host(ctx)
	if err != nil {
		return tc, err
	}
	port, err := db.MappedPort(ctx, tcpDBPort)
	if err != nil {
		return tc, err
	}
	tc.DBHost, tc.DBPort = host, port.Port()

	if err := initMariaDB(tc.DBHost, tc.DBPort); err != nil {
		return tc, err
	}
	logMessage(t, "DB_HOST=%s DB_PORT=%s", tc.DBHost, tc.DBPort)
	return tc, nil
}

func initMariaDB(host, port string) error {
	db, err := sql.Open("mysql", fmt.Sprintf("root:%s@tcp(%s:%s)/?multiStatements=false", env("DB_ROOT_PASSWORD", "root"), host, port))
	if err != nil {
		return fmt.Errorf("failed to connect to MariaDB for setup: %w", err)
	}
	defer db.Close()

	// the port listens before the server accepts logins
	for i := 0; i < 30; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		return fmt.Errorf("MariaDB not ready after 30 seconds: %w", err)
	}

	statements := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", env("DB_DATABASE", "assembly")),
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", env("AUTHZ_DATABASE", "authorizer")),
		fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY '%s'", env("DB_USER", "assembly_admin"), env("DB_PASSWORD", "admin")),
		fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY '%s'", env("DB_APP_USER", "assembly_app"), env("DB_APP_PASSWORD", "app")),
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%w : when executing > %s", err, stmt)
		}
	}
	return executeSQL(db, data.InitdbMariaDBPrivileges)
}

// executeSQL runs a script of semicolon terminated statements. Whole-line
// comments are skipped.
func executeSQL(db *sql.DB, script string) error {
	var kept []string
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, trimmed)
	}

	for _, q := range strings.Split(strings.Join(kept, " "), ";") {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("%w : when executing > %s", err, q)
		}
	}
	return nil
}

// StartAll starts the database, an Authorizer and the assemblydb image built
// from the repository Dockerfile. t may be nil outside tests.
func StartAll(ctx context.Context, t testing.TB) (*Containers, error) {
	tc, err := StartDatabase(ctx, t)
	if err != nil {
		return tc, err
	}
	networkName := tc.Network.Name

	tcpAuthzPort, err := nat.NewPort("tcp", env("AUTHZ_PORT", "8080"))
	if err != nil {
		return tc, fmt.Errorf("failed to create Authorizer port: %w", err)
	}
	authz, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        env("AUTHZ_IMAGE", "lakhansamani/authorizer:latest"),
			ExposedPorts: []string{string(tcpAuthzPort)},
			Env: map[string]string{
				"ENV":           "production",
				"CLIENT_ID":     os.Getenv("AUTHZ_CLIENT_ID"),
				"PORT":          tcpAuthzPort.Port(),
				"DATABASE_TYPE": "mariadb",
				"DATABASE_NAME": env("AUTHZ_DATABASE", "authorizer"),
				"DATABASE_URL": fmt.Sprintf("root:%s@tcp(%s:%s)/%s",
					env("DB_ROOT_PASSWORD", "root"), dbAlias, env("DB_PORT", "3306"), env("AUTHZ_DATABASE", "authorizer")),
				"ADMIN_SECRET":  os.Getenv("AUTHZ_ADMIN_SECRET"),
				"ROLES":         "admin,user",
				"DEFAULT_ROLES": "user",
			},
			WaitingFor: wait.ForLog("Authorizer running at PORT:").WithStartupTimeout(30 * time.Second),
			Networks:   []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {authzAlias},
			},
		},
		Started: true,
	})
	if err != nil {
		return tc, fmt.Errorf("failed to start Authorizer: %w", err)
	}
	tc.Authorizer = authz

	authzHost, _ := authz.Host(ctx)
	authzPort, _ := authz.MappedPort(ctx, tcpAuthzPort)
	logMessage(t, "AUTHZ_URL=http://%s:%s", authzHost, authzPort.Port())

	tcpAppPort, err := nat.NewPort("tcp", env("PORT", "3000"))
	if err != nil {
		return tc, fmt.Errorf("failed to create assemblydb port: %w", err)
	}
	request := testcontainers.ContainerRequest{
		ExposedPorts: []string{string(tcpAppPort)},
		Env: map[string]string{
			"DB_TYPE":         "mysql",
			"DB_HOST":         dbAlias,
			"DB_PORT":         env("DB_PORT", "3306"),
			"DB_DATABASE":     env("DB_DATABASE", "assembly"),
			"DB_APP_USER":     env("DB_APP_USER", "assembly_app"),
			"DB_APP_PASSWORD": env("DB_APP_PASSWORD", "app"),
			"DB_USER":         env("DB_USER", "assembly_admin"),
			"DB_PASSWORD":     env("DB_PASSWORD", "admin"),
			"AUTHZ_URL":       fmt.Sprintf("http://%s:%s", authzAlias, tcpAuthzPort.Port()),
			"AUTHZ_CLIENT_ID": os.Getenv("AUTHZ_CLIENT_ID"),
			"PORT":            tcpAppPort.Port(),
		},
		WaitingFor: wait.ForHTTP("/metrics").WithPort(tcpAppPort).WithStartupTimeout(60 * time.Second),
		Networks:   []string{networkName},
	}

	exists, err := imageExists(ctx, appImage)
	if err != nil {
		return tc, fmt.Errorf("failed to check if image exists: %w", err)
	}
	if exists {
		logMessage(t, "Image %s exists, reusing...", appImage)
		request.Image = appImage
	} else {
		logMessage(t, "Image %s does not exist, building...", appImage)
		sessionID := uuid.New().String()
		buildArgs := map[string]*string{"RESOURCE_REAPER_SESSION_ID": &sessionID}
		buildContext := env("TESTCONTAINERS_BUILD_CONTEXT", "../..")

		builder, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				FromDockerfile: testcontainers.FromDockerfile{
					Context:    buildContext,
					Dockerfile: "Dockerfile",
					Repo:       "assemblydb-test-builder",
					Tag:        "latest",
					BuildArgs:  buildArgs,
					BuildOptionsModifier: func(opts *build.ImageBuildOptions) {
						opts.Target = "builder"
					},
				},
			},
			Started: false,
		})
		if err != nil {
			return tc, fmt.Errorf("failed to build assemblydb builder: %w", err)
		}
		tc.Builder = builder

		parts := strings.Split(appImage, ":")
		request.FromDockerfile = testcontainers.FromDockerfile{
			Context:    buildContext,
			Dockerfile: "Dockerfile",
			Repo:       parts[0],
			Tag:        parts[1],
			KeepImage:  true,
			BuildArgs:  buildArgs,
			BuildOptionsModifier: func(opts *build.ImageBuildOptions) {
				opts.Target = "runtime"
			},
		}
	}

	app, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: request,
		Started:          true,
	})
	if err != nil {
		return tc, fmt.Errorf("failed to start assemblydb: %w", err)
	}
	tc.App = app

	appHost, _ := app.Host(ctx)
	appPort, _ := app.MappedPort(ctx, tcpAppPort)
	logMessage(t, "BASE_URL=http://%s:%s", appHost, appPort.Port())
	return tc, nil
}

func imageExists(ctx context.Context, name string) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, err
	}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == name {
				return true, nil
			}
		}
	}
	return false, nil
}

func logMessage(t testing.TB, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
