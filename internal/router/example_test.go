package router

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/patric-chuzhbe/jobtracker/internal/auth"
)

func ExampleRouter_getPing() {
	server, _, _ := setupTestRouter(nil)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ping")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	fmt.Println("Status Code:", resp.StatusCode)

	// Output:
	// Status Code: 200
}

func ExampleRouter_postUser() {
	server, r, _ := setupTestRouter(nil, withMockAuth(true))
	defer server.Close()

	body := bytes.NewBufferString(`{"email":"a@x.com","name":"Ann"}`)
	req := httptest.NewRequest(http.MethodPost, "/user", body)
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(context.WithValue(req.Context(), auth.SubjectKey, "auth0|abc"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	fmt.Println("Status Code:", rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/user", bytes.NewBufferString(`{"email":"a@x.com","name":"Ann"}`))
	req = req.WithContext(context.WithValue(req.Context(), auth.SubjectKey, "auth0|abc"))
	r.ServeHTTP(rec, req)
	fmt.Println("Status Code:", rec.Code)

	// Output:
	// Status Code: 201
	// Status Code: 409
}
