package nntp

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-while/go-nzbidx/internal/models"
)

// MaxReadLinesList caps a LIST ACTIVE response (allow for large group lists).
const MaxReadLinesList = 500000

// SelectGroup sends GROUP unless the group is already selected on this
// connection. The 211 response carries "count first last group".
func (c *Conn) SelectGroup(groupName string) (*models.GroupInfo, error) {
	if groupName == "" {
		return nil, fmt.Errorf("group name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, ErrNotConnected
	}
	if c.currentGroup == groupName && c.groupInfo != nil {
		return c.groupInfo, nil
	}
	c.lastUsed = time.Now()

	code, message, err := c.cmdLocked(0, "GROUP %s", groupName)
	if err != nil {
		return nil, fmt.Errorf("failed to read GROUP '%s' response: %w", groupName, err)
	}
	if code != GroupSelected {
		return nil, fmt.Errorf("group selection failed: expected code 211, got %d - response: %s group %s",
			code, message, groupName)
	}

	parts := strings.Fields(message)
	if len(parts) < 4 {
		return nil, fmt.Errorf("malformed GROUP response (expected 'count first last group'): %s", message)
	}
	count, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse count in GROUP '%s' response: %w", groupName, err)
	}
	first, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse first in GROUP '%s' response: %w", groupName, err)
	}
	last, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last in GROUP '%s' response: %w", groupName, err)
	}

	info := &models.GroupInfo{
		Name:  groupName,
		Count: count,
		First: first,
		Last:  last,
	}
	c.currentGroup = groupName
	c.groupInfo = info
	return info, nil
}

// XOverLines sends XOVER low-high and returns the raw overview lines,
// dot-unstuffed, without parsing them. A 423 (or 420) yields ErrNoSuchRange.
func (c *Conn) XOverLines(low, high uint64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, ErrNotConnected
	}
	c.lastUsed = time.Now()

	code, message, err := c.cmdLocked(0, "XOVER %d-%d", low, high)
	if err != nil {
		return nil, fmt.Errorf("failed to read XOVER response: %w", err)
	}
	switch code {
	case OverviewFollows:
		// fall through to the body
	case NoSuchRange, NoArticleSelected:
		return nil, fmt.Errorf("%w: XOVER %d-%d: %d %s", ErrNoSuchRange, low, high, code, message)
	default:
		return nil, fmt.Errorf("XOVER failed: %d %s", code, message)
	}

	// high-low+1 articles at most, plus slack for servers that ignore bounds
	limit := int(high-low+1) + 1000
	lines, err := c.readMultilineLocked(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read XOVER data: %w", err)
	}
	return lines, nil
}

// XOverProbe fetches the raw overview line for a single article number.
// Returns ErrNoSuchRange when the article does not exist.
func (c *Conn) XOverProbe(articleNum uint64) (string, error) {
	lines, err := c.XOverLines(articleNum, articleNum)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("%w: XOVER %d-%d: empty response", ErrNoSuchRange, articleNum, articleNum)
	}
	return lines[0], nil
}

// ListActive sends LIST ACTIVE with an optional wildmat and parses the 215
// body into GroupInfo records. Malformed lines are skipped.
func (c *Conn) ListActive(wildmat string) ([]models.GroupInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, ErrNotConnected
	}
	c.lastUsed = time.Now()

	var code int
	var message string
	var err error
	if wildmat != "" {
		code, message, err = c.cmdLocked(0, "LIST ACTIVE %s", wildmat)
	} else {
		code, message, err = c.cmdLocked(0, "LIST ACTIVE")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read LIST ACTIVE response: %w", err)
	}
	if code != ListFollows {
		return nil, fmt.Errorf("LIST ACTIVE failed: %d %s", code, message)
	}

	lines, err := c.readMultilineLocked(MaxReadLinesList)
	if err != nil {
		return nil, fmt.Errorf("failed to read group list: %w", err)
	}

	groups := make([]models.GroupInfo, 0, len(lines))
	for _, line := range lines {
		group, err := parseActiveLine(line)
		if err != nil {
			continue
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// readMultilineLocked reads a multi-line response ending with ".". Caller
// holds c.mu and has already consumed the status line.
func (c *Conn) readMultilineLocked(maxLines int) ([]string, error) {
	var lines []string
	for {
		if len(lines) >= maxLines {
			c.teardownLocked()
			return nil, fmt.Errorf("too many lines in response (limit: %d)", maxLines)
		}

		c.refreshDeadline()
		line, err := c.text.ReadLine()
		if err != nil {
			return nil, err
		}
		if line == DOT {
			break
		}
		// Dot-stuffing: a received leading ".." is a literal "."
		if strings.HasPrefix(line, "..") {
			line = line[1:]
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// parseActiveLine parses one LIST ACTIVE line: "group high low status".
func parseActiveLine(line string) (models.GroupInfo, error) {
	parts := strings.Fields(line)
	if len(parts) < 4 {
		return models.GroupInfo{}, fmt.Errorf("malformed active line: %s", line)
	}
	last, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return models.GroupInfo{}, fmt.Errorf("invalid last article number in active line: %s", line)
	}
	first, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return models.GroupInfo{}, fmt.Errorf("invalid first article number in active line: %s", line)
	}

	count := int64(0)
	if last >= first {
		count = last - first + 1
	}
	return models.GroupInfo{
		Name:      parts[0],
		Count:     count,
		First:     first,
		Last:      last,
		Status:    parts[3],
		PostingOK: parts[3] == "y",
	}, nil
}
