package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	xerrors "SettleX-Atlas/internal/errors"
	"SettleX-Atlas/internal/ticket"
)

const (
	insertTicketSQL = `INSERT INTO support_tickets
    (ticket_id, session_id, issue, transaction_ref, sentiment, created_at)
    VALUES (?, ?, ?, ?, ?, ?)`

	selectTicketColumns = `SELECT ticket_id, session_id, issue, transaction_ref, sentiment, created_at
    FROM support_tickets`
)

// TicketRepository 把支持工单写入 MySQL，实现 ticket.Sink。
type TicketRepository struct {
	db *sql.DB
}

// NewTicketRepository 建立连接池并执行内嵌迁移。
func NewTicketRepository(ctx context.Context, cfg Config) (*TicketRepository, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, storageError(err, "执行工单库迁移失败")
	}
	return &TicketRepository{db: db}, nil
}

// Migrate 只执行迁移，不保留连接。
func Migrate(ctx context.Context, cfg Config) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := runMigrations(ctx, db); err != nil {
		return storageError(err, "执行工单库迁移失败")
	}
	return nil
}

// Submit 实现 ticket.Sink。
func (r *TicketRepository) Submit(ctx context.Context, t ticket.Ticket) error {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err := r.db.ExecContext(ctx, insertTicketSQL,
		t.ID,
		t.SessionID,
		t.Issue,
		t.TransactionRef,
		t.Sentiment,
		createdAt.Unix(),
	); err != nil {
		return storageError(err, "写入工单失败")
	}
	return nil
}

// ListLatest 按创建时间倒序返回最近的工单。
func (r *TicketRepository) ListLatest(ctx context.Context, limit int) ([]ticket.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, selectTicketColumns+`
    ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storageError(err, "查询工单失败")
	}
	defer rows.Close()

	var tickets []ticket.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "遍历工单失败")
	}
	return tickets, nil
}

// FindByID 返回指定工单号最近的一条记录。
func (r *TicketRepository) FindByID(ctx context.Context, id string) (*ticket.Ticket, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "工单号不能为空")
	}
	row := r.db.QueryRowContext(ctx, selectTicketColumns+`
    WHERE ticket_id = ? ORDER BY id DESC LIMIT 1`, id)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, xerrors.New(xerrors.CodeNotFound, "工单不存在", xerrors.WithMetadata("ticket_id", id))
		}
		return nil, err
	}
	return &t, nil
}

// Close 关闭连接池。
func (r *TicketRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTicket(s scanner) (ticket.Ticket, error) {
	var (
		t         ticket.Ticket
		createdAt int64
	)
	if err := s.Scan(&t.ID, &t.SessionID, &t.Issue, &t.TransactionRef, &t.Sentiment, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, storageError(err, "解析工单失败")
	}
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	return t, nil
}

var (
	_ ticket.Sink   = (*TicketRepository)(nil)
	_ ticket.Lister = (*TicketRepository)(nil)
)
