// 创建讲师账号
//
// 公开注册接口只能创建学员，讲师账号通过此脚本或 seed 配置创建。
//
// 用法: go run scripts/create_instructor.go -username alice -email alice@example.com -password secret123

package main

import (
	"context"
	"dontpanic_backend/internal/config"
	"dontpanic_backend/internal/repository"
	"dontpanic_backend/internal/service"
	"dontpanic_backend/pkg/database"
	"dontpanic_backend/pkg/logger"
	"flag"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// 只读取脚本需要的部分
type scriptConfig struct {
	Server   config.ServerConfig   `yaml:"server"`
	Database config.DatabaseConfig `yaml:"database"`
}

func main() {
	configFile := flag.String("config", "configs/config.yaml", "配置文件路径")
	username := flag.String("username", "", "讲师用户名")
	email := flag.String("email", "", "讲师邮箱")
	password := flag.String("password", "", "讲师密码")
	flag.Parse()

	if *username == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *email == "" {
		*email = *username + "@dontpanic.local"
	}

	data, err := os.ReadFile(*configFile)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var sc scriptConfig
	if err := yaml.Unmarshal(data, &sc); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}
	if sc.Database.Driver == "" {
		sc.Database.Driver = "mysql"
	}

	cfg := &config.Config{Server: sc.Server, Database: sc.Database}
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	auth := service.NewAuthService(userRepo, cfg)
	users := service.NewUserService(db, userRepo, auth, nil, nil, nil)

	user, err := users.CreateInstructor(context.Background(), *username, *email, *password)
	if err != nil {
		log.Fatalf("创建讲师失败: %v", err)
	}
	log.Printf("讲师账号已创建: id=%d username=%s", user.ID, user.Username)
}
