package engine

import "github.com/raydesk/raydesk/pkg/utils"

// WriteConfig 原子写入配置文件，配置中含有密码，仅当前用户可读
func WriteConfig(path string, data []byte) error {
	return utils.WriteFileAtomic(path, data, 0o600)
}
