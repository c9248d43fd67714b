package queue

import (
	"encoding/json"
	"testing"
)

func TestNewExtractTask(t *testing.T) {
	job := &Job{
		DocumentID: "3f6d2c1e-9a2b-4c1d-8e5f-0a1b2c3d4e5f",
		Filename:   "scan.pdf",
		MimeType:   "application/pdf",
		FileSize:   12345,
	}

	task, opts, err := NewExtractTask(job)
	if err != nil {
		t.Fatalf("NewExtractTask failed: %v", err)
	}
	if task.Type() != TaskTypeExtractDocument {
		t.Errorf("task type = %q, want %q", task.Type(), TaskTypeExtractDocument)
	}
	if len(opts) == 0 {
		t.Error("expected task options")
	}

	var decoded Job
	if err := json.Unmarshal(task.Payload(), &decoded); err != nil {
		t.Fatalf("payload does not round-trip: %v", err)
	}
	if decoded != *job {
		t.Errorf("decoded job = %+v, want %+v", decoded, *job)
	}
}

func TestNewExtractTaskRequiresDocumentID(t *testing.T) {
	if _, _, err := NewExtractTask(&Job{Filename: "orphan.pdf"}); err == nil {
		t.Error("expected error for job without documentId")
	}
}

func TestRedisJobEnvelope(t *testing.T) {
	raw := `{
		"id": "task-1",
		"type": "extract-document",
		"payload": {
			"documentId": "doc-9",
			"filename": "report.png",
			"mimeType": "image/png",
			"fileSize": 2048
		},
		"attempts": 1,
		"maxRetries": 3
	}`

	var job RedisJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if job.Payload.DocumentID != "doc-9" {
		t.Errorf("documentId = %q, want doc-9", job.Payload.DocumentID)
	}
	if job.Payload.MimeType != "image/png" {
		t.Errorf("mimeType = %q, want image/png", job.Payload.MimeType)
	}
	if job.Attempts != 1 || job.MaxRetries != 3 {
		t.Errorf("retry bookkeeping = %d/%d, want 1/3", job.Attempts, job.MaxRetries)
	}
}
