package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
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
	case "employment":
		handleEmployment(args)
	case "org":
		handleOrg(args)
	case "people":
		handlePeople(args)
	case "stats":
		showDashboard()
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
		fmt.Println("Usage: workforce auth <register|login|logout|who>")
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

func handleEmployment(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: workforce employment <list|hire|status|terminate|history>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listEmployments(args[1:])
	case "hire":
		hireEmployee(args[1:])
	case "status":
		changeStatus(args[1:])
	case "terminate":
		terminateEmployment(args[1:])
	case "history":
		employmentHistory(args[1:])
	default:
		fmt.Printf("unknown employment command: %s\n", subCmd)
	}
}

func handleOrg(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: workforce org <departments|positions|vacancies|managers|seed>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "departments":
		listDepartments()
	case "positions":
		listPositions()
	case "vacancies":
		showVacancies(args[1:])
	case "managers":
		listManagers()
	case "seed":
		seedOrg(args[1:])
	default:
		fmt.Printf("unknown org command: %s\n", subCmd)
	}
}

func handlePeople(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: workforce people <list|chart>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listPeople()
	case "chart":
		showOrgChart(args[1:])
	default:
		fmt.Printf("unknown people command: %s\n", subCmd)
	}
}

// Auth commands
func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	username := fs.String("username", "", "display name")
	password := fs.String("password", "", "password")
	personID := fs.Int64("person", 0, "person ID to link (optional)")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"email":    *email,
		"username": *username,
		"password": *password,
	}
	if *personID != 0 {
		payload["personId"] = *personID
	}

	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/register", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Account registered: %s\n", *email)
		if token, ok := result["token"].(string); ok {
			saveToken(token)
		}
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result)
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
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
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Employment commands
func listEmployments(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	personID := fs.Int64("person", 0, "filter by person ID")
	fs.Parse(args)

	url := getAPIURL() + "/employments"
	if *personID != 0 {
		url = fmt.Sprintf("%s?person=%d", url, *personID)
	}

	contracts, ok := getList(url, "employments")
	if !ok {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPERSON\tPOSITION\tSTATUS\tHIRED\tEND")
	for _, c := range contracts {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n",
			c["id"], c["personId"], c["positionId"], c["status"], c["hireDate"], orDash(c["endDate"]))
	}
	w.Flush()
}

func hireEmployee(args []string) {
	fs := flag.NewFlagSet("hire", flag.ExitOnError)
	personID := fs.Int64("person", 0, "person ID")
	positionID := fs.Int64("position", 0, "position ID")
	hireDate := fs.String("start", "", "hire date (YYYY-MM-DD)")
	end := fs.String("end", "", "end date for fixed-term contracts (YYYY-MM-DD)")
	empType := fs.String("type", "", "employment type code (optional)")
	fs.Parse(args)

	if *personID == 0 || *positionID == 0 || *hireDate == "" {
		fmt.Println("Error: person, position, and start are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"personId":   *personID,
		"positionId": *positionID,
		"hireDate":   *hireDate,
	}
	if *end != "" {
		payload["endDate"] = *end
	}
	if *empType != "" {
		payload["employmentType"] = *empType
	}

	var result map[string]interface{}
	if status := postJSON(getAPIURL()+"/employments", payload, &result); status == 201 {
		fmt.Printf("✓ Hired: employment %v\n", result["id"])
	} else {
		fmt.Printf("✗ Hire failed: %v\n", result)
	}
}

func changeStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	id := fs.Int64("id", 0, "employment ID")
	status := fs.String("to", "", "target status code (ACT, SUS, PER, REP, FIN, REN, DES, ANU)")
	end := fs.String("end", "", "end date (YYYY-MM-DD, for terminal statuses)")
	notes := fs.String("notes", "", "exit notes")
	fs.Parse(args)

	if *id == 0 || *status == "" {
		fmt.Println("Error: id and to are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{"status": *status}
	if *end != "" {
		payload["endDate"] = *end
	}
	if *notes != "" {
		payload["exitNotes"] = *notes
	}

	var result map[string]interface{}
	url := fmt.Sprintf("%s/employments/%d/status", getAPIURL(), *id)
	if code := postJSON(url, payload, &result); code == 200 {
		fmt.Printf("✓ Status changed to %s\n", *status)
	} else {
		fmt.Printf("✗ Status change failed: %v\n", result)
	}
}

func terminateEmployment(args []string) {
	fs := flag.NewFlagSet("terminate", flag.ExitOnError)
	id := fs.Int64("id", 0, "employment ID")
	reason := fs.String("reason", "", "exit reason code (REN, DES, FIN, ANU)")
	end := fs.String("end", "", "end date (YYYY-MM-DD)")
	notes := fs.String("notes", "", "exit notes")
	keepAccount := fs.Bool("keep-account", false, "leave the person's login active")
	fs.Parse(args)

	if *id == 0 || *reason == "" {
		fmt.Println("Error: id and reason are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{"exitReason": *reason}
	if *keepAccount {
		payload["deactivateUser"] = false
	}
	if *end != "" {
		payload["endDate"] = *end
	}
	if *notes != "" {
		payload["exitNotes"] = *notes
	}

	var result map[string]interface{}
	url := fmt.Sprintf("%s/employments/%d/terminate", getAPIURL(), *id)
	if code := postJSON(url, payload, &result); code == 200 {
		fmt.Printf("✓ Employment %d terminated\n", *id)
	} else {
		fmt.Printf("✗ Termination failed: %v\n", result)
	}
}

func employmentHistory(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: workforce employment history <employment-id>")
		return
	}

	logs, ok := getList(fmt.Sprintf("%s/employments/%s/history", getAPIURL(), args[0]), "history")
	if !ok {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tSTATUS\tREASON")
	for _, l := range logs {
		fmt.Fprintf(w, "%v\t%v (%v)\t%v\n", l["startDate"], l["statusName"], l["status"], l["reason"])
	}
	w.Flush()
}

// Org commands
func listDepartments() {
	depts, ok := getList(getAPIURL()+"/departments", "departments")
	if !ok {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPARENT")
	for _, d := range depts {
		fmt.Fprintf(w, "%v\t%v\t%v\n", d["id"], d["name"], orDash(d["parentId"]))
	}
	w.Flush()
}

func listPositions() {
	positions, ok := getList(getAPIURL()+"/positions", "positions")
	if !ok {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDEPARTMENT\tSEATS\tMANAGER")
	for _, p := range positions {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n",
			p["id"], orDash(p["name"]), p["departmentId"], p["vacancies"], p["isManager"])
	}
	w.Flush()
}

func showVacancies(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: workforce org vacancies <position-id>")
		return
	}

	var summary map[string]interface{}
	if !getJSON(fmt.Sprintf("%s/positions/%s/vacancies", getAPIURL(), args[0]), &summary) {
		return
	}

	fmt.Printf("Position %v: %v of %v seats occupied, %v vacant\n",
		summary["positionId"], summary["occupied"], summary["capacity"], summary["vacant"])
}

func listManagers() {
	roles, ok := getList(getAPIURL()+"/managers", "roles")
	if !ok {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PERSON\tDEPARTMENT\tSINCE")
	for _, m := range roles {
		fmt.Fprintf(w, "%v\t%v\t%v\n", m["personId"], m["departmentId"], m["startDate"])
	}
	w.Flush()
}

// seedOrg loads a fixture file of departments, job titles, and positions.
// The file maps names to IDs implicitly: positions reference departments and
// job titles by list index (1-based, in file order).
func seedOrg(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	file := fs.String("file", "org.json", "fixture file")
	fs.Parse(args)

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	var fixture struct {
		Departments []struct {
			Name string `json:"name"`
		} `json:"departments"`
		JobTitles []struct {
			Name string `json:"name"`
		} `json:"jobTitles"`
		Positions []struct {
			Department int    `json:"department"`
			JobTitle   int    `json:"jobTitle"`
			Name       string `json:"name,omitempty"`
			Vacancies  int    `json:"vacancies"`
			IsManager  bool   `json:"isManager,omitempty"`
		} `json:"positions"`
	}
	if err := json.Unmarshal(data, &fixture); err != nil {
		fmt.Printf("Error: invalid fixture file: %v\n", err)
		return
	}

	deptIDs := make([]int64, 0, len(fixture.Departments))
	for _, d := range fixture.Departments {
		var result map[string]interface{}
		if code := postJSON(getAPIURL()+"/departments", map[string]interface{}{"name": d.Name}, &result); code != 201 {
			fmt.Printf("✗ Department %q failed: %v\n", d.Name, result)
			return
		}
		deptIDs = append(deptIDs, int64(result["id"].(float64)))
	}

	titleIDs := make([]int64, 0, len(fixture.JobTitles))
	for _, jt := range fixture.JobTitles {
		var result map[string]interface{}
		if code := postJSON(getAPIURL()+"/job-titles", map[string]interface{}{"name": jt.Name}, &result); code != 201 {
			fmt.Printf("✗ Job title %q failed: %v\n", jt.Name, result)
			return
		}
		titleIDs = append(titleIDs, int64(result["id"].(float64)))
	}

	created := 0
	for _, p := range fixture.Positions {
		if p.Department < 1 || p.Department > len(deptIDs) || p.JobTitle < 1 || p.JobTitle > len(titleIDs) {
			fmt.Printf("✗ Position %q references an unknown department or job title\n", p.Name)
			return
		}
		payload := map[string]interface{}{
			"departmentId": deptIDs[p.Department-1],
			"jobTitleId":   titleIDs[p.JobTitle-1],
			"vacancies":    p.Vacancies,
		}
		if p.Name != "" {
			payload["name"] = p.Name
		}
		if p.IsManager {
			payload["isManager"] = true
		}
		var result map[string]interface{}
		if code := postJSON(getAPIURL()+"/positions", payload, &result); code != 201 {
			fmt.Printf("✗ Position %q failed: %v\n", p.Name, result)
			return
		}
		created++
	}

	fmt.Printf("✓ Seeded %d departments, %d job titles, %d positions\n",
		len(deptIDs), len(titleIDs), created)
}

// People commands
func listPeople() {
	people, ok := getList(getAPIURL()+"/people", "people")
	if !ok {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, p := range people {
		fmt.Fprintf(w, "%v\t%v\n", p["id"], p["fullName"])
	}
	w.Flush()
}

func showOrgChart(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: workforce people chart <person-id>")
		return
	}

	var chart map[string]interface{}
	if !getJSON(fmt.Sprintf("%s/people/%s/org-chart", getAPIURL(), args[0]), &chart) {
		return
	}

	data, _ := json.MarshalIndent(chart, "", "  ")
	fmt.Println(string(data))
}

func showDashboard() {
	var stats map[string]interface{}
	if !getJSON(getAPIURL()+"/dashboard", &stats) {
		return
	}

	expiring := 0
	if items, ok := stats["expiringContracts"].([]interface{}); ok {
		expiring = len(items)
	}

	fmt.Printf("Headcount:            %v\n", stats["headcount"])
	fmt.Printf("New hires this month: %v\n", stats["newHiresThisMonth"])
	fmt.Printf("Exits this month:     %v\n", stats["exitsThisMonth"])
	fmt.Printf("Pending accounts:     %v\n", stats["pendingAccounts"])
	fmt.Printf("Expiring contracts:   %d\n", expiring)
}

// Helper functions
func getJSON(url string, out interface{}) bool {
	req, _ := http.NewRequest("GET", url, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		var msg map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&msg)
		fmt.Printf("✗ Request failed (%d): %v\n", resp.StatusCode, msg)
		return false
	}

	json.NewDecoder(resp.Body).Decode(out)
	return true
}

// getList fetches an endpoint that wraps its results in a named envelope,
// e.g. {"employments": [...]}.
func getList(url, key string) ([]map[string]interface{}, bool) {
	var envelope map[string]json.RawMessage
	if !getJSON(url, &envelope) {
		return nil, false
	}

	var items []map[string]interface{}
	if raw, ok := envelope[key]; ok {
		json.Unmarshal(raw, &items)
	}
	return items, true
}

func postJSON(url string, payload interface{}, out interface{}) int {
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 0
	}
	defer resp.Body.Close()

	json.NewDecoder(resp.Body).Decode(out)
	return resp.StatusCode
}

func orDash(v interface{}) interface{} {
	if v == nil {
		return "-"
	}
	if s, ok := v.(string); ok && s == "" {
		return "-"
	}
	return v
}

func getAPIURL() string {
	if url := os.Getenv("WORKFORCE_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.workforce/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.workforce", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`Workforce CLI

Usage:
  workforce <command> [options]

Commands:
  auth        Account operations (register, login, logout, who)
  employment  Employment contracts (list, hire, status, terminate, history)
  org         Org structure (departments, positions, vacancies, managers, seed)
  people      People (list, chart)
  stats       Dashboard summary
  help        Show this help message

Environment Variables:
  WORKFORCE_API    API endpoint (default: http://localhost:8080/api)

Examples:
  workforce auth login -email hr@example.com -password pass
  workforce employment hire -person 12 -position 4 -start 2026-09-01
  workforce employment terminate -id 12 -reason REN -notes "new role elsewhere"
  workforce org vacancies 4
`)
}
