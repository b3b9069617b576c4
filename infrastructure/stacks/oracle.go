package stacks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"keychat/domain"
)

// ContractConfig names the read-only function answering membership.
// It is called as (function subject holder).
type ContractConfig struct {
	NodeURL         string
	ContractAddress string
	ContractName    string
	FunctionName    string
}

type readOnlyRequest struct {
	Sender    string   `json:"sender"`
	Arguments []string `json:"arguments"`
}

type readOnlyResponse struct {
	Okay   bool   `json:"okay"`
	Result string `json:"result"`
	Cause  string `json:"cause"`
}

// ContractOracle asks a Stacks node through /v2/contracts/call-read.
type ContractOracle struct {
	log    *slog.Logger
	client *http.Client
	config ContractConfig
}

func NewContractOracle(log *slog.Logger, client *http.Client, config ContractConfig) *ContractOracle {
	return &ContractOracle{log: log, client: client, config: config}
}

func (o *ContractOracle) IsHolder(ctx context.Context, subject domain.RoomID, holder domain.Identity) (bool, error) {
	subjectArg, err := PrincipalArgument(subject.String())
	if err != nil {
		return false, fmt.Errorf("subject: %w", err)
	}
	holderArg, err := PrincipalArgument(holder.String())
	if err != nil {
		return false, fmt.Errorf("holder: %w", err)
	}

	body, err := json.Marshal(readOnlyRequest{
		Sender:    holder.String(),
		Arguments: []string{subjectArg, holderArg},
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint(), bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("read-only call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("read-only call returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out readOnlyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode read-only response: %w", err)
	}
	if !out.Okay {
		return false, fmt.Errorf("read-only call not okay: %s", out.Cause)
	}

	isHolder, err := DecodeBool(out.Result)
	if err != nil {
		return false, err
	}
	o.log.Debug("Membership checked", "subject", subject, "holder", holder, "is_holder", isHolder)
	return isHolder, nil
}

func (o *ContractOracle) endpoint() string {
	return fmt.Sprintf("%s/v2/contracts/call-read/%s/%s/%s",
		strings.TrimRight(o.config.NodeURL, "/"),
		url.PathEscape(o.config.ContractAddress),
		url.PathEscape(o.config.ContractName),
		url.PathEscape(o.config.FunctionName),
	)
}
