//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

const (
	DOCKER_FILE = "../docker-compose.yml"
	BINARY_NAME = "../bin/chat-relay"
	MAIN_PATH   = "../cmd/server/main.go"
)

func DockerUp() error {
	fmt.Println("🚀 Starting Redis container...")
	return runCmd("docker-compose", "-f", DOCKER_FILE, "up", "-d")
}

func DockerDown() error {
	fmt.Println("🛑 Stopping Redis container...")
	return runCmd("docker-compose", "-f", DOCKER_FILE, "down")
}

func DockerStop() error {
	fmt.Println("⏸️  Stopping Redis container (retaining instance)...")
	return runCmd("docker-compose", "-f", DOCKER_FILE, "stop")
}

func DockerStart() error {
	fmt.Println("▶️  Starting existing Redis container...")
	return runCmd("docker-compose", "-f", DOCKER_FILE, "start")
}

func Build() error {
	fmt.Println("🔨 Building server binary...")
	return runCmd("go", "build", "-o", BINARY_NAME, MAIN_PATH)
}

func Test() error {
	fmt.Println("🧪 Running tests...")
	return runCmd("go", "test", "../...")
}

func Clean() {
	fmt.Println("🧹 Cleaning up...")
	os.Remove(BINARY_NAME)
	mg.Deps(DockerDown)
}

func runCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
