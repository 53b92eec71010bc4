package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

type apiClient struct {
	baseURL string
	http    *http.Client
}

type envelope struct {
	Status bool            `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

func (c *apiClient) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if !env.Status {
		return resp.StatusCode, fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, env.Error)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (c *apiClient) Doctors(ctx context.Context) ([]int64, error) {
	var data struct {
		Doctors []int64 `json:"doctors"`
	}
	_, err := c.do(ctx, http.MethodGet, "/api/doctors", nil, &data)
	return data.Doctors, err
}

func (c *apiClient) Available(ctx context.Context, doctorID int64, date string) ([]string, error) {
	var data struct {
		Available []string `json:"available"`
	}
	path := "/api/slots/" + strconv.FormatInt(doctorID, 10) + "?date=" + url.QueryEscape(date)
	_, err := c.do(ctx, http.MethodGet, path, nil, &data)
	return data.Available, err
}

func (c *apiClient) Book(ctx context.Context, t Target, patientName string) (uuid.UUID, int, error) {
	var data struct {
		Appointment struct {
			ID uuid.UUID `json:"id"`
		} `json:"appointment"`
	}
	status, err := c.do(ctx, http.MethodPost, "/api/book", map[string]any{
		"doctorId":    t.DoctorID,
		"date":        t.Date,
		"time":        t.Time,
		"patientName": patientName,
	}, &data)
	return data.Appointment.ID, status, err
}

func (c *apiClient) Cancel(ctx context.Context, id uuid.UUID) (int, error) {
	return c.do(ctx, http.MethodDelete, "/api/book/"+id.String(), nil, nil)
}
