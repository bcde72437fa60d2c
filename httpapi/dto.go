/*
Copyright (C) 2026  Obsync Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package httpapi

import "encoding/json"

type createVaultRequest struct {
	Name string `json:"name"`
}

type vaultDTO struct {
	ID        string `json:"id"`
	Owner     string `json:"owner"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

type pushOpDTO struct {
	FileID         *string         `json:"fileId,omitempty"`
	OpType         string          `json:"opType"`
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

type pushRequestDTO struct {
	DeviceID string      `json:"deviceId"`
	Ops      []pushOpDTO `json:"ops"`
}

type missingChunkDTO struct {
	BlobHash string `json:"blobHash"`
	Index    int    `json:"index"`
}

type pushResponseDTO struct {
	AcknowledgedSeq int64             `json:"acknowledgedSeq"`
	AppliedCount    int               `json:"appliedCount"`
	MissingChunks   []missingChunkDTO `json:"missingChunks"`
	RebaseRequired  bool              `json:"rebaseRequired"`
}

type pullResponseDTO struct {
	Ops       []json.RawMessage `json:"ops"`
	Watermark int64             `json:"watermark"`
	HasMore   bool              `json:"hasMore"`
}

type blobInitRequest struct {
	Hash       string `json:"hash"`
	Size       int64  `json:"size"`
	ChunkCount int    `json:"chunkCount"`
	CipherAlg  string `json:"cipherAlg"`
}

type blobInitResponse struct {
	UploadID       string `json:"uploadId"`
	Hash           string `json:"hash"`
	MissingIndices []int  `json:"missingIndices"`
}

type blobChunkDTO struct {
	Index     int    `json:"index"`
	ChunkHash string `json:"chunkHash"`
	Size      int64  `json:"size"`
}

type blobManifestDTO struct {
	Hash       string         `json:"hash"`
	Size       int64          `json:"size"`
	ChunkCount int            `json:"chunkCount"`
	CipherAlg  string         `json:"cipherAlg"`
	Chunks     []blobChunkDTO `json:"chunks"`
}

type putChunkRequestDTO struct {
	ChunkHash        string `json:"chunkHash"`
	Size             int64  `json:"size"`
	CipherTextBase64 string `json:"cipherTextBase64"`
}

type putChunkResponseDTO struct {
	BlobHash  string `json:"blobHash"`
	Index     int    `json:"index"`
	Persisted bool   `json:"persisted"`
}

type getChunkResponseDTO struct {
	BlobHash         string `json:"blobHash"`
	Index            int    `json:"index"`
	ChunkHash        string `json:"chunkHash"`
	Size             int64  `json:"size"`
	CipherTextBase64 string `json:"cipherTextBase64"`
}

type blobCommitRequestDTO struct {
	Hash               string `json:"hash"`
	ExpectedChunkCount int    `json:"expectedChunkCount"`
	ExpectedSize       int64  `json:"expectedSize"`
}

type blobCommitResponseDTO struct {
	Hash      string `json:"hash"`
	Committed bool   `json:"committed"`
}

type realtimeBacklogEventDTO struct {
	Seq       int64           `json:"seq"`
	OpType    string          `json:"opType"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"createdAt"`
}

type realtimeBacklogEnvelopeDTO struct {
	Type   string                    `json:"type"`
	Events []realtimeBacklogEventDTO `json:"events"`
}

type realtimeEventEnvelopeDTO struct {
	Type      string          `json:"type"`
	VaultID   string          `json:"vaultId"`
	Seq       int64           `json:"seq"`
	OpType    string          `json:"opType"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"createdAt"`
}

type realtimeKeepaliveEnvelopeDTO struct {
	Type string `json:"type"`
	Ts   int64  `json:"ts"`
}

type realtimeErrorEnvelopeDTO struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	Remediation string `json:"remediation,omitempty"`
}
