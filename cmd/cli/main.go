package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "task":
		handleTask(args)
	case "users":
		listUsers(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: taskboard auth <register|login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "register":
		registerUser(args[1:])
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleTask(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: taskboard task <list|create|show|update|complete|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listTasks(args[1:])
	case "create":
		createTask(args[1:])
	case "show":
		showTask(args[1:])
	case "update":
		updateTask(args[1:])
	case "complete":
		completeTask(args[1:])
	case "delete":
		deleteTask(args[1:])
	default:
		fmt.Printf("unknown task command: %s\n", subCmd)
	}
}

// Auth commands
func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *name == "" || *email == "" || *password == "" {
		fmt.Println("Error: name, email, and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"name":     *name,
		"email":    *email,
		"password": *password,
	}

	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/users/register", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		fmt.Printf("✓ User registered: %s\n", *email)
		if id, ok := result["id"].(string); ok {
			saveUserID(id)
		}
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result)
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/users/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["access_token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *email)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:min(20, len(token))])
	if id := loadUserID(); id != "" {
		fmt.Printf("  user id: %s\n", id)
	}
}

// Task commands
func listTasks(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	user := fs.String("user", "", "user ID (default: the saved account)")
	all := fs.Bool("all", false, "list every user's tasks")
	fs.Parse(args)

	path := "/users/" + resolveUser(*user) + "/tasks"
	if *all {
		path = "/users/tasks"
	}

	req, _ := http.NewRequest("GET", getAPIURL()+path, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		printError(resp)
		return
	}

	var tasks []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&tasks)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCOMPLETED\tCREATED")
	for _, task := range tasks {
		completed := "-"
		if c, ok := task["completed_at"].(string); ok && c != "" {
			completed = c
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", task["id"], task["title"], completed, task["created_at"])
	}
	w.Flush()
}

func createTask(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	user := fs.String("user", "", "user ID (default: the saved account)")
	title := fs.String("title", "", "task title")
	description := fs.String("description", "", "task description")
	fs.Parse(args)

	if *title == "" || *description == "" {
		fmt.Println("Error: title and description are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"title": *title, "description": *description}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/users/"+resolveUser(*user)+"/tasks", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		printError(resp)
		return
	}

	var task map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&task)
	fmt.Printf("✓ Task created: %v\n", task["id"])
}

func showTask(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	user := fs.String("user", "", "user ID (default: the saved account)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: taskboard task show [-user <id>] <task-id>")
		return
	}

	req, _ := http.NewRequest("GET", taskURL(*user, fs.Arg(0), ""), nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		printError(resp)
		return
	}

	var task map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&task)
	out, _ := json.MarshalIndent(task, "", "  ")
	fmt.Println(string(out))
}

func updateTask(args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	user := fs.String("user", "", "user ID (default: the saved account)")
	title := fs.String("title", "", "new title")
	description := fs.String("description", "", "new description")
	owner := fs.String("owner", "", "reassign to user ID")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: taskboard task update [-user <id>] [-title t] [-description d] [-owner u] <task-id>")
		return
	}

	payload := map[string]string{}
	if *title != "" {
		payload["title"] = *title
	}
	if *description != "" {
		payload["description"] = *description
	}
	if *owner != "" {
		payload["user_id"] = *owner
	}

	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("PUT", taskURL(*user, fs.Arg(0), ""), bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 204 {
		printError(resp)
		return
	}
	fmt.Println("✓ Task updated")
}

func completeTask(args []string) {
	fs := flag.NewFlagSet("complete", flag.ExitOnError)
	user := fs.String("user", "", "user ID (default: the saved account)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: taskboard task complete [-user <id>] <task-id>")
		return
	}

	req, _ := http.NewRequest("POST", taskURL(*user, fs.Arg(0), "/complete"), nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 204 {
		printError(resp)
		return
	}
	fmt.Println("✓ Task completed")
}

func deleteTask(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	user := fs.String("user", "", "user ID (default: the saved account)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: taskboard task delete [-user <id>] <task-id>")
		return
	}

	req, _ := http.NewRequest("DELETE", taskURL(*user, fs.Arg(0), ""), nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 204 {
		printError(resp)
		return
	}
	fmt.Println("✓ Task deleted")
}

func listUsers(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/users", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		printError(resp)
		return
	}

	var users []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&users)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL")
	for _, u := range users {
		fmt.Fprintf(w, "%v\t%v\t%v\n", u["id"], u["name"], u["email"])
	}
	w.Flush()
}

// Helper functions
func taskURL(user, task, suffix string) string {
	return getAPIURL() + "/users/" + resolveUser(user) + "/tasks/" + task + suffix
}

func resolveUser(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if id := loadUserID(); id != "" {
		return id
	}
	fmt.Println("Error: no user ID saved; pass -user or register first")
	os.Exit(1)
	return ""
}

func printError(resp *http.Response) {
	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	fmt.Printf("✗ Request failed (%d): %v\n", resp.StatusCode, result)
}

func getAPIURL() string {
	if url := os.Getenv("TASKBOARD_API"); url != "" {
		return url
	}
	return "http://localhost:8080/v1"
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return home + "/.taskboard"
}

func tokenFile() string {
	return configDir() + "/token"
}

func userIDFile() string {
	return configDir() + "/user_id"
}

func saveToken(token string) error {
	os.MkdirAll(configDir(), 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return strings.TrimSpace(string(data))
}

func saveUserID(id string) error {
	os.MkdirAll(configDir(), 0700)
	return os.WriteFile(userIDFile(), []byte(id), 0600)
}

func loadUserID() string {
	data, _ := os.ReadFile(userIDFile())
	return strings.TrimSpace(string(data))
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`Taskboard CLI

Usage:
  taskboard <command> [options]

Commands:
  auth   User authentication (register, login, logout, who)
  task   Task operations (list, create, show, update, complete, delete)
  users  List registered users
  help   Show this help message

Environment Variables:
  TASKBOARD_API    API endpoint (default: http://localhost:8080/v1)

Examples:
  taskboard auth register -name Ann -email ann@example.com -password secret123
  taskboard auth login -email ann@example.com -password secret123
  taskboard task create -title "Buy milk" -description "2 litres"
  taskboard task list
`)
}
