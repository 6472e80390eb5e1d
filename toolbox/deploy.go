package toolbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const deployTimeout = 300 * time.Second

const defaultDockerfile = `FROM node:20-alpine
WORKDIR /app
COPY package*.json ./
RUN npm install --production
COPY . .
EXPOSE %d
CMD ["npm", "start"]
`

func (e *Executor) deploy(ctx context.Context, args map[string]any) (string, error) {
	target, err := requiredString(args, "target")
	if err != nil {
		return "", err
	}
	config, _ := args["config"].(map[string]any)
	if config == nil {
		config = map[string]any{}
	}

	name, _ := stringArg(config, "name")
	if name == "" {
		name = filepath.Base(e.root)
	}
	port, ok := intArg(config, "port")
	if !ok || port <= 0 {
		port = 3000
	}

	switch target {
	case "docker":
		return e.deployDocker(ctx, name, port)
	case "systemd":
		return e.deploySystemd(config, name)
	case "pm2":
		return e.deployPM2(ctx, config, name)
	case "nginx":
		return e.deployNginx(config, name, port)
	case "custom":
		command, ok := stringArg(config, "command")
		if !ok || command == "" {
			return "", fmt.Errorf("custom deployment requires a command in config")
		}
		return e.runShell(ctx, command, deployTimeout)
	default:
		return "", fmt.Errorf("unsupported deployment target %q; supported: docker, systemd, pm2, nginx, custom", target)
	}
}

// deployDocker builds and (re)starts a named container, writing a default
// Dockerfile first when the project has none.
func (e *Executor) deployDocker(ctx context.Context, name string, port int) (string, error) {
	var steps []string

	dockerfile := filepath.Join(e.root, "Dockerfile")
	if _, err := os.Stat(dockerfile); os.IsNotExist(err) {
		content := fmt.Sprintf(defaultDockerfile, port)
		if err := os.WriteFile(dockerfile, []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("write default Dockerfile: %w", err)
		}
		steps = append(steps, "Wrote default Dockerfile")
	}

	out, err := e.runCommand(ctx, deployTimeout, "docker", "build", "-t", name, ".")
	if err != nil {
		return "", fmt.Errorf("docker build failed: %w", err)
	}
	steps = append(steps, "docker build:\n"+out)

	// A stale container with the same name blocks docker run; removal failing
	// because none exists is fine.
	if out, err := e.runCommand(ctx, deployTimeout, "docker", "rm", "-f", name); err == nil {
		steps = append(steps, "docker rm:\n"+out)
	}

	portMapping := fmt.Sprintf("%d:%d", port, port)
	out, err = e.runCommand(ctx, deployTimeout, "docker", "run", "-d", "--name", name, "-p", portMapping, name)
	if err != nil {
		return "", fmt.Errorf("docker run failed: %w", err)
	}
	steps = append(steps, "docker run:\n"+out)

	return strings.Join(steps, "\n"), nil
}

func (e *Executor) deploySystemd(config map[string]any, name string) (string, error) {
	command, _ := stringArg(config, "command")
	if command == "" {
		command = "npm start"
	}
	unit := fmt.Sprintf(`[Unit]
Description=%s
After=network.target

[Service]
Type=simple
WorkingDirectory=%s
ExecStart=/bin/sh -c %q
Restart=on-failure

[Install]
WantedBy=multi-user.target
`, name, e.root, command)

	unitFile := filepath.Join(e.root, name+".service")
	if err := os.WriteFile(unitFile, []byte(unit), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("Wrote %s.service:\n\n%s\nInstall it with:\n  sudo cp %s /etc/systemd/system/ && sudo systemctl daemon-reload && sudo systemctl enable --now %s",
		name, unit, unitFile, name), nil
}

func (e *Executor) deployPM2(ctx context.Context, config map[string]any, name string) (string, error) {
	command, _ := stringArg(config, "command")
	if command == "" {
		command = "npm start"
	}
	return e.runCommand(ctx, deployTimeout, "pm2", "start", command, "--name", name)
}

func (e *Executor) deployNginx(config map[string]any, name string, port int) (string, error) {
	domain, _ := stringArg(config, "domain")
	if domain == "" {
		domain = name + ".local"
	}
	conf := fmt.Sprintf(`server {
    listen 80;
    server_name %s;

    location / {
        proxy_pass http://127.0.0.1:%d;
        proxy_http_version 1.1;
        proxy_set_header Upgrade $http_upgrade;
        proxy_set_header Connection "upgrade";
        proxy_set_header Host $host;
    }
}
`, domain, port)

	confFile := filepath.Join(e.root, name+".nginx.conf")
	if err := os.WriteFile(confFile, []byte(conf), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("Wrote %s.nginx.conf:\n\n%s\nInstall it with:\n  sudo cp %s /etc/nginx/sites-available/%s && sudo ln -s /etc/nginx/sites-available/%s /etc/nginx/sites-enabled/ && sudo nginx -s reload",
		name, conf, confFile, name, name), nil
}
