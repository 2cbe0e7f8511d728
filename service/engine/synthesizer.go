package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"
	"github.com/raydesk/raydesk/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/idna"
	"gorm.io/gorm"
)

var errNoDB = errors.New("数据库不可用")

// Synthesizer 根据用户设置和所选节点生成引擎配置，只读数据库
type Synthesizer struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewSynthesizer(db *gorm.DB, log *logrus.Logger) *Synthesizer {
	return &Synthesizer{db: db, log: log}
}

// Synthesize 生成完整的配置文档，任何一节失败都不会返回部分结果
func (s *Synthesizer) Synthesize(ctx context.Context, userID, endpointID string) (*Config, error) {
	if s.db == nil {
		return nil, configErr("database", errNoDB)
	}
	db := s.db.WithContext(ctx)

	if err := checkAssociation(db, userID, endpointID); err != nil {
		return nil, err
	}

	logCfg, err := loadLog(db, userID)
	if err != nil {
		return nil, err
	}
	inbounds, err := loadInbounds(db, userID)
	if err != nil {
		return nil, err
	}
	primary, err := loadPrimaryOutbound(db, endpointID)
	if err != nil {
		return nil, err
	}
	dnsCfg, err := loadDNS(db, userID)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Log:       logCfg,
		Inbounds:  inbounds,
		API:       defaultAPI(),
		Policy:    defaultPolicy(),
		Outbounds: []Outbound{primary, directOutbound(), blockOutbound()},
		DNS:       dnsCfg,
		Routing:   defaultRouting(),
	}
	s.log.Debugf("[Engine] 已为节点 %s 生成配置，主出站 %s/%s", endpointID, primary.Protocol, primary.Tag)
	return cfg, nil
}

// Render 生成并序列化配置，相同的存储数据总是得到相同的字节
func (s *Synthesizer) Render(ctx context.Context, userID, endpointID string) ([]byte, error) {
	cfg, err := s.Synthesize(ctx, userID, endpointID)
	if err != nil {
		return nil, err
	}
	return Marshal(cfg)
}

// Marshal 以两空格缩进输出配置
func Marshal(cfg *Config) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, configErr("encode", err)
	}
	return data, nil
}

// checkAssociation 节点必须位于该用户拥有的分组中
func checkAssociation(db *gorm.DB, userID, endpointID string) error {
	groups := db.Model(&model.EndpointsGroup{}).Select("GroupID").Where("UserID = ?", userID)

	var count int64
	err := db.Model(&model.Endpoint{}).
		Where("EndpointID = ? AND GroupID IN (?)", endpointID, groups).
		Count(&count).Error
	if err != nil {
		return configErr("association", err)
	}
	if count == 0 {
		return &AssociationError{UserID: userID, EndpointID: endpointID}
	}
	return nil
}

func loadLog(db *gorm.DB, userID string) (Log, error) {
	var row model.Log
	if err := db.Where("UserID = ?", userID).First(&row).Error; err != nil {
		return Log{}, configErr("log", err)
	}
	return Log{
		Error:    row.ErrorPath,
		LogLevel: row.LogLevel,
		Access:   row.AccessPath,
	}, nil
}

func loadInbounds(db *gorm.DB, userID string) ([]Inbound, error) {
	var rows []model.Inbound
	if err := db.Where("UserID = ?", userID).Order("ID").Find(&rows).Error; err != nil {
		return nil, configErr("inbounds", err)
	}

	inbounds := make([]Inbound, 0, len(rows))
	for _, row := range rows {
		port, err := ParsePort(row.Port)
		if err != nil {
			return nil, configErr("inbounds", fmt.Errorf("入站 %s: %w", row.Tag, err))
		}
		in := Inbound{
			Listen:   row.Listen,
			Port:     port,
			Protocol: row.Protocol,
			Tag:      row.Tag,
		}
		if in.Listen == "" {
			in.Listen = "127.0.0.1"
		}

		// 三项都存在才输出 allocate
		if row.Strategy != nil && row.Refresh != nil && row.Concurrency != nil {
			refresh, err := ParseUint32(*row.Refresh)
			if err != nil {
				return nil, configErr("inbounds", fmt.Errorf("入站 %s refresh: %w", row.Tag, err))
			}
			concurrency, err := ParseUint32(*row.Concurrency)
			if err != nil {
				return nil, configErr("inbounds", fmt.Errorf("入站 %s concurrency: %w", row.Tag, err))
			}
			in.Allocate = &Allocate{Strategy: *row.Strategy, Refresh: refresh, Concurrency: concurrency}
		}

		if row.Protocol == "dokodemo-door" {
			in.Settings = &InboundSettings{Address: "127.0.0.1"}
		}
		inbounds = append(inbounds, in)
	}
	return inbounds, nil
}

func loadDNS(db *gorm.DB, userID string) (DNS, error) {
	var rows []model.DNS
	if err := db.Where("UserID = ?", userID).Limit(1).Find(&rows).Error; err != nil {
		return DNS{}, configErr("dns", err)
	}
	raw := model.DefaultDNS
	if len(rows) > 0 && strings.TrimSpace(rows[0].Value) != "" {
		raw = rows[0].Value
	}
	return ParseDNS(raw)
}

// ParseDNS 解析并校验存储的 DNS 覆盖文档，未知字段视为损坏
func ParseDNS(raw string) (DNS, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()

	var d DNS
	if err := dec.Decode(&d); err != nil {
		return DNS{}, configErr("dns", fmt.Errorf("DNS 覆盖不是合法的 JSON: %w", err))
	}
	if d.Hosts == nil {
		d.Hosts = map[string]string{}
	}
	for name, addr := range d.Hosts {
		if err := validateHostEntry(name, addr); err != nil {
			return DNS{}, configErr("dns", err)
		}
	}
	return d, nil
}

func validateHostEntry(name, addr string) error {
	for _, prefix := range []string{"geosite:", "regexp:", "keyword:"} {
		if strings.HasPrefix(name, prefix) {
			return nil
		}
	}
	host := strings.TrimPrefix(strings.TrimPrefix(name, "domain:"), "full:")
	if host == "" {
		return errors.New("hosts 中存在空域名")
	}
	if !validHostname(host) {
		return fmt.Errorf("hosts 域名 %q 无效", name)
	}
	if addr == "" {
		return fmt.Errorf("hosts 域名 %q 未指定地址", name)
	}
	if net.ParseIP(addr) == nil && !validHostname(addr) {
		return fmt.Errorf("hosts 域名 %q 的地址 %q 无效", name, addr)
	}
	return nil
}

// validHostname 按 IDNA 查找规则转换后再检查 DNS 标签长度，空格和下划线等字符不合法
func validHostname(host string) bool {
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil || ascii == "" {
		return false
	}
	_, ok := dns.IsDomainName(ascii)
	return ok
}

// ===== 固定段 =====

func defaultAPI() API {
	return API{
		Services: []string{"HandlerService", "LoggerService", "StatsService"},
		Tag:      TagAPI,
	}
}

func defaultPolicy() Policy {
	return Policy{
		Levels: map[string]PolicyLevel{
			"0": {StatsUserUplink: true, StatsUserDownlink: true},
		},
		System: SystemPolicy{
			StatsInboundUplink:    true,
			StatsInboundDownlink:  true,
			StatsOutboundUplink:   true,
			StatsOutboundDownlink: true,
		},
	}
}

func defaultRouting() Routing {
	return Routing{
		Settings: RoutingSettings{
			DomainStrategy: "AsIs",
			Rules: []RoutingRule{
				{Type: "field", InboundTag: []string{TagAPI}, OutboundTag: TagAPI},
			},
		},
	}
}
