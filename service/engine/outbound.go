package engine

import (
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/raydesk/raydesk/model"
	"gorm.io/gorm"
)

func newOutbound(tag string, settings OutboundSettings, mux Mux, stream StreamSettings) Outbound {
	return Outbound{
		Protocol:       settings.Protocol(),
		Tag:            tag,
		Mux:            mux,
		StreamSettings: stream,
		Settings:       settings,
	}
}

func directOutbound() Outbound {
	return newOutbound(TagDirect,
		FreedomSettings{DomainStrategy: "UseIP", UserLevel: 0},
		Mux{Enabled: false, Concurrency: 1},
		StreamSettings{Network: "tcp", Security: "none"},
	)
}

func blockOutbound() Outbound {
	return newOutbound(TagBlock,
		BlackholeSettings{Response: BlackholeResponse{Type: "none"}},
		Mux{Enabled: false, Concurrency: 1},
		StreamSettings{Network: "tcp", Security: "none"},
	)
}

// loadPrimaryOutbound 主出站：协议设置 + 传输层 + 多路复用
func loadPrimaryOutbound(db *gorm.DB, endpointID string) (Outbound, error) {
	var row model.Outbound
	if err := db.Where("EndpointID = ?", endpointID).First(&row).Error; err != nil {
		return Outbound{}, configErr("outbound", err)
	}

	switch row.Tag {
	case "":
		return Outbound{}, configErr("outbound", errors.New("主出站缺少 tag"))
	case TagDirect, TagBlock, TagAPI:
		return Outbound{}, configErr("outbound", fmt.Errorf("主出站 tag %q 与内置出站冲突", row.Tag))
	}

	muxEnabled, err := ParseFlag(row.MuxEnabled)
	if err != nil {
		return Outbound{}, configErr("outbound", fmt.Errorf("MuxEnabled: %w", err))
	}
	muxConcurrency, err := optionalUint32(&row.MuxConcurrency, 8)
	if err != nil {
		return Outbound{}, configErr("outbound", fmt.Errorf("MuxConcurrency: %w", err))
	}

	stream, err := loadStreamSettings(db, endpointID)
	if err != nil {
		return Outbound{}, err
	}
	settings, err := loadProtocolSettings(db, endpointID, row.Protocol)
	if err != nil {
		return Outbound{}, err
	}

	out := newOutbound(row.Tag, settings, Mux{Enabled: muxEnabled, Concurrency: muxConcurrency}, stream)
	if row.SendThrough != "" && row.SendThrough != "0.0.0.0" {
		if net.ParseIP(row.SendThrough) == nil {
			return Outbound{}, configErr("outbound", fmt.Errorf("SendThrough %q 不是合法 IP", row.SendThrough))
		}
		out.SendThrough = row.SendThrough
	}
	return out, nil
}

func loadProtocolSettings(db *gorm.DB, endpointID, protocol string) (OutboundSettings, error) {
	switch protocol {
	case "vmess":
		return loadVmess(db, endpointID)
	case "shadowsocks":
		return loadShadowsocks(db, endpointID)
	case "trojan":
		return loadTrojan(db, endpointID)
	case "hysteria2":
		return loadHysteria2(db, endpointID)
	default:
		return nil, configErr("outbound", fmt.Errorf("%w: %q", ErrUnsupportedProtocol, protocol))
	}
}

func loadVmess(db *gorm.DB, endpointID string) (OutboundSettings, error) {
	var vnexts []model.VmessVnext
	if err := db.Where("EndpointID = ?", endpointID).Order("VnextID").Find(&vnexts).Error; err != nil {
		return nil, configErr("vmess", err)
	}
	if len(vnexts) == 0 {
		return nil, configErr("vmess", ErrNoServers)
	}

	settings := VmessSettings{Vnext: make([]VmessServer, 0, len(vnexts))}
	for _, v := range vnexts {
		server, err := serverAddress("vmess", v.Address, v.Port)
		if err != nil {
			return nil, err
		}

		var users []model.VmessUser
		if err := db.Where("VnextID = ?", v.VnextID).Order("ID").Find(&users).Error; err != nil {
			return nil, configErr("vmess", err)
		}
		if len(users) == 0 {
			return nil, configErr("vmess", fmt.Errorf("服务器 %s 未配置用户", v.Address))
		}

		vs := VmessServer{Address: server.Address, Port: server.Port, Users: make([]VmessUser, 0, len(users))}
		for _, u := range users {
			id, err := uuid.Parse(u.UUID)
			if err != nil {
				return nil, configErr("vmess", fmt.Errorf("用户 ID %q 不是合法 UUID: %w", u.UUID, err))
			}
			alterID, err := optionalUint32(&u.AlterID, 0)
			if err != nil {
				return nil, configErr("vmess", fmt.Errorf("AlterID: %w", err))
			}
			level, err := optionalUint32(u.Level, 0)
			if err != nil {
				return nil, configErr("vmess", fmt.Errorf("Level: %w", err))
			}
			security := u.Security
			if security == "" {
				security = "auto"
			}
			vs.Users = append(vs.Users, VmessUser{ID: id.String(), AlterID: alterID, Level: level, Security: security})
		}
		settings.Vnext = append(settings.Vnext, vs)
	}
	return settings, nil
}

func loadShadowsocks(db *gorm.DB, endpointID string) (OutboundSettings, error) {
	var rows []model.Shadowsocks
	if err := db.Where("EndpointID = ?", endpointID).Order("ID").Find(&rows).Error; err != nil {
		return nil, configErr("shadowsocks", err)
	}
	if len(rows) == 0 {
		return nil, configErr("shadowsocks", ErrNoServers)
	}

	settings := ShadowsocksSettings{Servers: make([]ShadowsocksServer, 0, len(rows))}
	for _, r := range rows {
		server, err := serverAddress("shadowsocks", r.Address, r.Port)
		if err != nil {
			return nil, err
		}
		if r.Method == "" || r.Password == "" {
			return nil, configErr("shadowsocks", fmt.Errorf("服务器 %s 缺少加密方式或密码", r.Address))
		}
		level, err := optionalUint32(&r.Level, 0)
		if err != nil {
			return nil, configErr("shadowsocks", fmt.Errorf("Level: %w", err))
		}
		settings.Servers = append(settings.Servers, ShadowsocksServer{
			Address:  server.Address,
			Port:     server.Port,
			Method:   r.Method,
			Password: r.Password,
			Level:    level,
			Email:    optionalString(r.Email, ""),
		})
	}
	return settings, nil
}

func loadTrojan(db *gorm.DB, endpointID string) (OutboundSettings, error) {
	var rows []model.TrojanServer
	if err := db.Where("EndpointID = ?", endpointID).Order("ID").Find(&rows).Error; err != nil {
		return nil, configErr("trojan", err)
	}
	if len(rows) == 0 {
		return nil, configErr("trojan", ErrNoServers)
	}

	settings := TrojanSettings{Servers: make([]TrojanServer, 0, len(rows))}
	for _, r := range rows {
		server, err := serverAddress("trojan", r.Address, r.Port)
		if err != nil {
			return nil, err
		}
		if r.Password == "" {
			return nil, configErr("trojan", fmt.Errorf("服务器 %s 缺少密码", r.Address))
		}
		level, err := optionalUint32(r.Level, 0)
		if err != nil {
			return nil, configErr("trojan", fmt.Errorf("Level: %w", err))
		}
		settings.Servers = append(settings.Servers, TrojanServer{
			Address:  server.Address,
			Port:     server.Port,
			Password: r.Password,
			Level:    level,
			Email:    optionalString(r.Email, ""),
		})
	}
	return settings, nil
}

func loadHysteria2(db *gorm.DB, endpointID string) (OutboundSettings, error) {
	var rows []model.Hysteria2
	if err := db.Where("EndpointID = ?", endpointID).Order("ID").Find(&rows).Error; err != nil {
		return nil, configErr("hysteria2", err)
	}
	if len(rows) == 0 {
		return nil, configErr("hysteria2", ErrNoServers)
	}

	settings := Hysteria2Settings{Servers: make([]Hysteria2Server, 0, len(rows))}
	for _, r := range rows {
		server, err := serverAddress("hysteria2", r.Address, r.Port)
		if err != nil {
			return nil, err
		}
		settings.Servers = append(settings.Servers, Hysteria2Server{Address: server.Address, Port: server.Port})
	}
	return settings, nil
}

type serverAddr struct {
	Address string
	Port    uint16
}

// serverAddress 校验地址非空并转换端口
func serverAddress(section, address, port string) (serverAddr, error) {
	if address == "" {
		return serverAddr{}, configErr(section, errors.New("服务器地址为空"))
	}
	p, err := ParsePort(port)
	if err != nil {
		return serverAddr{}, configErr(section, fmt.Errorf("服务器 %s: %w", address, err))
	}
	return serverAddr{Address: address, Port: p}, nil
}
