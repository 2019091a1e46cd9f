// Package admin - консоль администратора (команды и REPL) и служебный HTTP:
// список миров, выгрузка снимков, счетчики expvar.
package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownCommand - команда не зарегистрирована
var ErrUnknownCommand = errors.New("неизвестная команда")

// CommandFunc - обработчик команды консоли
type CommandFunc func(ctx context.Context, args []string) (string, error)

// Command - зарегистрированная команда
type Command struct {
	Name        string
	Description string
	Handler     CommandFunc
}

// Commands - реестр команд консоли
type Commands struct {
	mu       sync.RWMutex
	commands map[string]Command
}

func NewCommands() *Commands {
	return &Commands{commands: make(map[string]Command)}
}

// Register добавляет команду; повторная регистрация заменяет обработчик
func (c *Commands) Register(name, description string, handler CommandFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[name] = Command{Name: name, Description: description, Handler: handler}
}

// List возвращает команды в порядке имен
func (c *Commands) List() []Command {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Command, 0, len(c.commands))
	for _, cmd := range c.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute разбирает строку и выполняет команду
func (c *Commands) Execute(ctx context.Context, line string) (string, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil
	}
	c.mu.RLock()
	cmd, ok := c.commands[parts[0]]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, parts[0])
	}
	return cmd.Handler(ctx, parts[1:])
}

// Help - текст команды help
func (c *Commands) Help() string {
	var sb strings.Builder
	for _, cmd := range c.List() {
		fmt.Fprintf(&sb, "%s - %s\n", cmd.Name, cmd.Description)
	}
	return sb.String()
}

// Serve читает команды построчно из in и пишет ответы в out до конца
// ввода или отмены ctx
func (c *Commands) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res, err := c.Execute(ctx, scanner.Text())
		switch {
		case errors.Is(err, ErrUnknownCommand):
			fmt.Fprintln(out, "Неизвестная команда. help - список команд")
		case err != nil:
			fmt.Fprintf(out, "Ошибка: %v\n", err)
		default:
			fmt.Fprint(out, res)
		}
	}
}
