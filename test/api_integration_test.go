package test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestTaskLifecycle(t *testing.T) {
	s := NewAPIServer(t)

	userID := s.Register(t, "Ann", "ann@example.com", "secret-pass")
	token := s.Login(t, "ann@example.com", "secret-pass")

	// Create
	resp := s.DoJSON(t, http.MethodPost, "/v1/users/"+userID+"/tasks", token, map[string]string{
		"title":       "Buy milk",
		"description": "2 litres, semi-skimmed",
	})
	AssertStatusCode(t, resp, http.StatusOK)
	task := DecodeBody(t, resp)
	resp.Body.Close()

	taskID, _ := task["id"].(string)
	if taskID == "" {
		t.Fatalf("created task has no id: %v", task)
	}
	if task["title"] != "Buy milk" {
		t.Errorf("expected title Buy milk, got %v", task["title"])
	}

	taskPath := "/v1/users/" + userID + "/tasks/" + taskID

	// Complete
	resp = s.DoJSON(t, http.MethodPost, taskPath+"/complete", token, nil)
	AssertStatusCode(t, resp, http.StatusNoContent)
	resp.Body.Close()

	// Completing again is rejected
	resp = s.DoJSON(t, http.MethodPost, taskPath+"/complete", token, nil)
	AssertStatusCode(t, resp, http.StatusUnprocessableEntity)
	body := DecodeBody(t, resp)
	resp.Body.Close()
	if body["message"] != "Task already completed." {
		t.Errorf("expected already-completed message, got %v", body["message"])
	}

	// Delete
	resp = s.DoJSON(t, http.MethodDelete, taskPath, token, nil)
	AssertStatusCode(t, resp, http.StatusNoContent)
	resp.Body.Close()

	// The deleted task is gone from listings
	resp = s.DoJSON(t, http.MethodGet, "/v1/users/"+userID+"/tasks", token, nil)
	AssertStatusCode(t, resp, http.StatusNotFound)
	body = DecodeBody(t, resp)
	resp.Body.Close()
	if body["message"] != "Tasks not found." {
		t.Errorf("expected empty-listing message, got %v", body["message"])
	}

	// And cannot be fetched directly
	resp = s.DoJSON(t, http.MethodGet, taskPath, token, nil)
	AssertStatusCode(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestGuestRequestsAreRejected(t *testing.T) {
	s := NewAPIServer(t)

	userID := s.Register(t, "Ann", "ann@example.com", "secret-pass")

	resp := s.DoJSON(t, http.MethodGet, "/v1/users/"+userID+"/tasks", "", nil)
	AssertStatusCode(t, resp, http.StatusUnauthorized)
	body := DecodeBody(t, resp)
	resp.Body.Close()
	if body["message"] != "Unauthenticated." {
		t.Errorf("expected Unauthenticated., got %v", body["message"])
	}

	resp = s.DoJSON(t, http.MethodGet, "/v1/users/"+userID+"/tasks", "not-a-real-token", nil)
	AssertStatusCode(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestOwnershipIsHiddenAsNotFound(t *testing.T) {
	s := NewAPIServer(t)

	annID := s.Register(t, "Ann", "ann@example.com", "secret-pass")
	annToken := s.Login(t, "ann@example.com", "secret-pass")
	s.Register(t, "Bob", "bob@example.com", "secret-pass")
	bobToken := s.Login(t, "bob@example.com", "secret-pass")

	resp := s.DoJSON(t, http.MethodPost, "/v1/users/"+annID+"/tasks", annToken, map[string]string{
		"title": "Private", "description": "Ann's task",
	})
	AssertStatusCode(t, resp, http.StatusOK)
	task := DecodeBody(t, resp)
	resp.Body.Close()
	taskPath := "/v1/users/" + annID + "/tasks/" + task["id"].(string)

	// Bob holds a valid session but does not own the task
	resp = s.DoJSON(t, http.MethodGet, taskPath, bobToken, nil)
	AssertStatusCode(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = s.DoJSON(t, http.MethodDelete, taskPath, bobToken, nil)
	AssertStatusCode(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = s.DoJSON(t, http.MethodPost, taskPath+"/complete", bobToken, nil)
	AssertStatusCode(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = s.DoJSON(t, http.MethodPut, taskPath, bobToken, map[string]string{"title": "Hijacked"})
	AssertStatusCode(t, resp, http.StatusNotFound)
	resp.Body.Close()

	// Ann's whole task scope is invisible to Bob, not just single tasks
	resp = s.DoJSON(t, http.MethodGet, "/v1/users/"+annID+"/tasks", bobToken, nil)
	AssertStatusCode(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = s.DoJSON(t, http.MethodPost, "/v1/users/"+annID+"/tasks", bobToken, map[string]string{
		"title": "Planted", "description": "not Bob's to create",
	})
	AssertStatusCode(t, resp, http.StatusNotFound)
	resp.Body.Close()

	// Ann still sees it untouched
	resp = s.DoJSON(t, http.MethodGet, taskPath, annToken, nil)
	AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestDuplicateEmailRegistration(t *testing.T) {
	s := NewAPIServer(t)

	s.Register(t, "Ann", "ann@example.com", "secret-pass")

	resp := s.DoJSON(t, http.MethodPost, "/v1/users/register", "", map[string]string{
		"name": "Imposter", "email": "ann@example.com", "password": "secret-pass",
	})
	AssertStatusCode(t, resp, http.StatusUnprocessableEntity)
	body := DecodeBody(t, resp)
	resp.Body.Close()

	if body["message"] != "Invalid data." {
		t.Errorf("expected Invalid data., got %v", body["message"])
	}
	errs, _ := body["errors"].(map[string]interface{})
	if _, ok := errs["email"]; !ok {
		t.Errorf("expected an email field error, got %v", errs)
	}
}

func TestLoginFailureIsUniform(t *testing.T) {
	s := NewAPIServer(t)

	s.Register(t, "Ann", "ann@example.com", "secret-pass")

	for _, creds := range []map[string]string{
		{"email": "ann@example.com", "password": "wrong-pass"},
		{"email": "nobody@example.com", "password": "secret-pass"},
	} {
		resp := s.DoJSON(t, http.MethodPost, "/v1/users/login", "", creds)
		AssertStatusCode(t, resp, http.StatusUnprocessableEntity)
		body := DecodeBody(t, resp)
		resp.Body.Close()

		errs, _ := body["errors"].(map[string]interface{})
		msgs, _ := errs["password"].([]interface{})
		if len(msgs) != 1 || msgs[0] != "Invalid password." {
			t.Errorf("expected uniform password error for %v, got %v", creds["email"], errs)
		}
	}
}

func TestEmptyPatchIsRejected(t *testing.T) {
	s := NewAPIServer(t)

	userID := s.Register(t, "Ann", "ann@example.com", "secret-pass")
	token := s.Login(t, "ann@example.com", "secret-pass")

	resp := s.DoJSON(t, http.MethodPost, "/v1/users/"+userID+"/tasks", token, map[string]string{
		"title": "Original", "description": "Unchanged",
	})
	AssertStatusCode(t, resp, http.StatusOK)
	task := DecodeBody(t, resp)
	resp.Body.Close()
	taskPath := "/v1/users/" + userID + "/tasks/" + task["id"].(string)

	resp = s.DoJSON(t, http.MethodPut, taskPath, token, map[string]string{})
	AssertStatusCode(t, resp, http.StatusUnprocessableEntity)
	body := DecodeBody(t, resp)
	resp.Body.Close()

	errs, _ := body["errors"].(map[string]interface{})
	if _, ok := errs["title"]; !ok {
		t.Errorf("expected a title error, got %v", errs)
	}
	if _, ok := errs["description"]; !ok {
		t.Errorf("expected a description error, got %v", errs)
	}
}

func TestUpdateSendsMail(t *testing.T) {
	s := NewAPIServer(t)

	userID := s.Register(t, "Ann", "ann@example.com", "secret-pass")
	token := s.Login(t, "ann@example.com", "secret-pass")

	resp := s.DoJSON(t, http.MethodPost, "/v1/users/"+userID+"/tasks", token, map[string]string{
		"title": "Draft", "description": "First cut",
	})
	AssertStatusCode(t, resp, http.StatusOK)
	task := DecodeBody(t, resp)
	resp.Body.Close()
	taskPath := "/v1/users/" + userID + "/tasks/" + task["id"].(string)

	resp = s.DoJSON(t, http.MethodPut, taskPath, token, map[string]string{"title": "Final"})
	AssertStatusCode(t, resp, http.StatusNoContent)
	resp.Body.Close()

	msg := s.Mailer.Wait(t, 2*time.Second)
	if msg.To != "ann@example.com" {
		t.Errorf("expected mail to ann@example.com, got %s", msg.To)
	}
	if msg.Subject != "Your Task has been updated" {
		t.Errorf("unexpected subject: %s", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Final") {
		t.Errorf("expected body to mention the new title, got %q", msg.Body)
	}

	resp = s.DoJSON(t, http.MethodDelete, taskPath, token, nil)
	AssertStatusCode(t, resp, http.StatusNoContent)
	resp.Body.Close()

	msg = s.Mailer.Wait(t, 2*time.Second)
	if msg.Subject != "Your Task has been deleted" {
		t.Errorf("unexpected subject: %s", msg.Subject)
	}
}

func TestUserListing(t *testing.T) {
	s := NewAPIServer(t)

	// Empty directory
	resp := s.DoJSON(t, http.MethodGet, "/v1/users", "", nil)
	AssertStatusCode(t, resp, http.StatusNotFound)
	body := DecodeBody(t, resp)
	resp.Body.Close()
	if body["message"] != "Users not found." {
		t.Errorf("expected Users not found., got %v", body["message"])
	}

	s.Register(t, "Ann", "ann@example.com", "secret-pass")

	resp = s.DoJSON(t, http.MethodGet, "/v1/users", "", nil)
	AssertStatusCode(t, resp, http.StatusOK)

	var users []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	resp.Body.Close()

	if len(users) != 1 || users[0]["email"] != "ann@example.com" {
		t.Errorf("unexpected user listing: %v", users)
	}
	if _, leaked := users[0]["password_hash"]; leaked {
		t.Errorf("password hash leaked in listing")
	}
}

func TestListAllTasksSpansUsers(t *testing.T) {
	s := NewAPIServer(t)

	annID := s.Register(t, "Ann", "ann@example.com", "secret-pass")
	annToken := s.Login(t, "ann@example.com", "secret-pass")
	bobID := s.Register(t, "Bob", "bob@example.com", "secret-pass")
	bobToken := s.Login(t, "bob@example.com", "secret-pass")

	for _, c := range []struct{ user, token, title string }{
		{annID, annToken, "Ann's task"},
		{bobID, bobToken, "Bob's task"},
	} {
		resp := s.DoJSON(t, http.MethodPost, "/v1/users/"+c.user+"/tasks", c.token, map[string]string{
			"title": c.title, "description": "something",
		})
		AssertStatusCode(t, resp, http.StatusOK)
		resp.Body.Close()
	}

	resp := s.DoJSON(t, http.MethodGet, "/v1/users/tasks", annToken, nil)
	AssertStatusCode(t, resp, http.StatusOK)

	var tasks []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	resp.Body.Close()

	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks across users, got %d", len(tasks))
	}
}
